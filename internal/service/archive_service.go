package service

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/campusnotes/notes-api/internal/models"
	"github.com/campusnotes/notes-api/pkg/config"
	appErrors "github.com/campusnotes/notes-api/pkg/errors"
	"github.com/campusnotes/notes-api/pkg/storage"
)

type archiveNoteResolver interface {
	FindByIDs(ctx context.Context, ids []string) ([]models.Note, error)
}

// ArchiveName is the fixed filename of every assembled archive.
const ArchiveName = "notes.zip"

const defaultArchiveExt = ".pdf"

// ArchiveService assembles zip archives from selected notes. Requested ids
// that no longer resolve to a note, and notes without a stored blob, are
// silently skipped; a fetch failure on any remaining note aborts the whole
// archive so a partial zip is never served.
type ArchiveService struct {
	notes   archiveNoteResolver
	store   storage.ObjectStore
	metrics *MetricsService
	logger  *zap.Logger

	concurrency  int
	maxSelection int
}

// NewArchiveService creates a new archive service.
func NewArchiveService(notes archiveNoteResolver, store storage.ObjectStore, cfg config.NotesConfig, metrics *MetricsService, logger *zap.Logger) *ArchiveService {
	if logger == nil {
		logger = zap.NewNop()
	}
	concurrency := cfg.ZipConcurrency
	if concurrency <= 0 {
		concurrency = 4
	}
	return &ArchiveService{
		notes:        notes,
		store:        store,
		metrics:      metrics,
		logger:       logger,
		concurrency:  concurrency,
		maxSelection: cfg.MaxZipSelection,
	}
}

// BuildArchive fetches the selected notes' blobs and writes them into an
// in-memory zip. Entry names derive from note titles; duplicate titles yield
// duplicate entry names rather than silently renaming files.
func (s *ArchiveService) BuildArchive(ctx context.Context, noteIDs []string) ([]byte, error) {
	ids := dedupeIDs(noteIDs)
	if len(ids) == 0 {
		return nil, appErrors.Clone(appErrors.ErrEmptySelection, "no notes selected")
	}
	if s.maxSelection > 0 && len(ids) > s.maxSelection {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("selection exceeds %d notes", s.maxSelection))
	}

	notes, err := s.notes.FindByIDs(ctx, ids)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve notes")
	}

	entries := make([]archiveEntry, 0, len(notes))
	for _, note := range notes {
		if note.FileKey == "" {
			s.logger.Sugar().Warnw("skipping note without stored file", "note_id", note.ID)
			continue
		}
		entries = append(entries, archiveEntry{
			name: entryName(note.Title, note.FileKey),
			key:  note.FileKey,
		})
	}
	if len(entries) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "none of the selected notes are available")
	}

	if err := s.fetchAll(ctx, entries); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to fetch note files")
	}

	buf := new(bytes.Buffer)
	zw := zip.NewWriter(buf)
	for _, entry := range entries {
		w, err := zw.Create(entry.name)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to write archive entry")
		}
		if _, err := w.Write(entry.data); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to write archive entry")
		}
	}
	if err := zw.Close(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to finalise archive")
	}

	s.metrics.RecordArchive(buf.Len())
	s.logger.Sugar().Infow("archive assembled", "entries", len(entries), "bytes", buf.Len())
	return buf.Bytes(), nil
}

type archiveEntry struct {
	name string
	key  string
	data []byte
}

// fetchAll stages every blob concurrently. Writes to the entries slice are
// per-index, so no locking is needed; the zip itself is written serially by
// the caller.
func (s *ArchiveService) fetchAll(ctx context.Context, entries []archiveEntry) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for i := range entries {
		i := i
		g.Go(func() error {
			data, err := s.store.Fetch(gctx, entries[i].key)
			if err != nil {
				return fmt.Errorf("fetch %s: %w", entries[i].key, err)
			}
			entries[i].data = data
			return nil
		})
	}
	return g.Wait()
}

// entryName builds the archive entry filename from the note title, carrying
// over the stored blob's extension.
func entryName(title, fileKey string) string {
	ext := path.Ext(fileKey)
	if ext == "" {
		ext = defaultArchiveExt
	}
	name := storage.SanitizeName(title)
	if strings.EqualFold(path.Ext(name), ext) {
		return name
	}
	return name + ext
}

func dedupeIDs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
