// Package images tracks uploaded image references and hands the bytes
// to a file-storage collaborator. The rest of the system only ever sees
// ImageReference metadata.
package images

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/article-generation-api/internal/models"
	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"
)

const cleanupTimeout = 10 * time.Second

var (
	// ErrNotAnImage rejects uploads whose content is not an image
	ErrNotAnImage = errors.New("file is not an image")

	// ErrFileTooLarge rejects uploads above the configured size limit
	ErrFileTooLarge = errors.New("file too large")

	// ErrUnknownImage indicates a filename that was never registered
	ErrUnknownImage = errors.New("unknown image")

	// ErrNoFiles rejects an empty upload
	ErrNoFiles = errors.New("no files uploaded")
)

// Upload is one uploaded file as received from the client
type Upload struct {
	Name string
	Data []byte
}

// Tracker assigns collision-resistant filenames and remembers every
// reference it handed out.
type Tracker struct {
	mu      sync.Mutex
	refs    []models.ImageReference // registration order
	byName  map[string]models.ImageReference
	storage FileStorage
	maxSize int64
	now     func() time.Time
	log     zerolog.Logger
}

// NewTracker creates a tracker writing bytes to storage. A maxSize of
// zero disables the size check.
func NewTracker(storage FileStorage, maxSize int64, log zerolog.Logger) *Tracker {
	return &Tracker{
		byName:  make(map[string]models.ImageReference),
		storage: storage,
		maxSize: maxSize,
		now:     time.Now,
		log:     log.With().Str("component", "images").Logger(),
	}
}

// SetClock overrides the time source used for filenames
func (t *Tracker) SetClock(now func() time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.now = now
}

// Register derives one reference per file in input order. Filenames are
// "<unix millis>-<original name>", with a counter inserted before the
// extension when that name was already handed out.
func (t *Tracker) Register(files []Upload) []models.ImageReference {
	t.mu.Lock()
	defer t.mu.Unlock()

	stamp := t.now().UnixMilli()
	refs := make([]models.ImageReference, 0, len(files))
	for _, f := range files {
		name := sanitizeName(f.Name)
		filename := fmt.Sprintf("%d-%s", stamp, name)
		if _, taken := t.byName[filename]; taken {
			ext := filepath.Ext(name)
			stem := strings.TrimSuffix(name, ext)
			for n := 2; ; n++ {
				filename = fmt.Sprintf("%d-%s-%d%s", stamp, stem, n, ext)
				if _, taken := t.byName[filename]; !taken {
					break
				}
			}
		}

		ref := models.ImageReference{Filename: filename, OriginalName: f.Name}
		t.byName[filename] = ref
		t.refs = append(t.refs, ref)
		refs = append(refs, ref)
	}
	return refs
}

// Upload validates that every file is an image within the size limit,
// registers them and stores their bytes. Nothing is registered when any
// file is rejected.
func (t *Tracker) Upload(ctx context.Context, files []Upload) ([]models.ImageReference, error) {
	if len(files) == 0 {
		return nil, ErrNoFiles
	}

	contentTypes := make([]string, len(files))
	for i, f := range files {
		if t.maxSize > 0 && int64(len(f.Data)) > t.maxSize {
			return nil, fmt.Errorf("%s: %w (max %d bytes)", f.Name, ErrFileTooLarge, t.maxSize)
		}
		mt := mimetype.Detect(f.Data)
		if !strings.HasPrefix(mt.String(), "image/") {
			return nil, fmt.Errorf("%s: %w (detected %s)", f.Name, ErrNotAnImage, mt.String())
		}
		contentTypes[i] = mt.String()
	}

	refs := t.Register(files)
	for i, ref := range refs {
		if err := t.storage.Put(ctx, ref.Filename, contentTypes[i], bytes.NewReader(files[i].Data)); err != nil {
			t.forget(refs)
			t.removeStored(refs[:i])
			return nil, fmt.Errorf("failed to store %s: %w", ref.OriginalName, err)
		}
	}

	t.log.Info().Int("count", len(refs)).Msg("Images uploaded")
	return refs, nil
}

// List returns every registered reference, most recent first
func (t *Tracker) List() []models.ImageReference {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]models.ImageReference, len(t.refs))
	for i, ref := range t.refs {
		out[len(t.refs)-1-i] = ref
	}
	return out
}

// Resolve maps filenames to their registered references, keeping order
func (t *Tracker) Resolve(filenames []string) ([]models.ImageReference, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	refs := make([]models.ImageReference, 0, len(filenames))
	for _, name := range filenames {
		ref, ok := t.byName[name]
		if !ok {
			return nil, fmt.Errorf("%s: %w", name, ErrUnknownImage)
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

// removeStored deletes files written before a failed upload. It runs
// detached from the request context so a cancelled request still cleans up.
func (t *Tracker) removeStored(refs []models.ImageReference) {
	ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
	defer cancel()

	for _, ref := range refs {
		if err := t.storage.Delete(ctx, ref.Filename); err != nil {
			t.log.Warn().Err(err).Str("filename", ref.Filename).Msg("Failed to remove partially uploaded image")
		}
	}
}

func (t *Tracker) forget(refs []models.ImageReference) {
	t.mu.Lock()
	defer t.mu.Unlock()

	drop := make(map[string]struct{}, len(refs))
	for _, ref := range refs {
		drop[ref.Filename] = struct{}{}
		delete(t.byName, ref.Filename)
	}
	kept := t.refs[:0]
	for _, ref := range t.refs {
		if _, ok := drop[ref.Filename]; !ok {
			kept = append(kept, ref)
		}
	}
	t.refs = kept
}

// sanitizeName keeps the base name with letters, digits, dots, hyphens
// and underscores; spaces become hyphens.
func sanitizeName(name string) string {
	name = filepath.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))

	var b strings.Builder
	for _, r := range name {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '.' || r == '-' || r == '_':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteByte('-')
		}
	}

	clean := strings.TrimLeft(b.String(), ".")
	if clean == "" {
		return "image"
	}
	return clean
}
