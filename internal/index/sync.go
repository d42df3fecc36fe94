package index

import "log/slog"

// Reindex rebuilds the projection from scratch by replaying EntryAdded
// for every stored entry. This is the recovery path for a crash that
// left index and store inconsistent; for stateless variants it is a
// cheap no-op pass.
func Reindex(idx Index, src EntrySource, logger *slog.Logger) error {
	if err := idx.Clear(); err != nil {
		return err
	}
	slugs, err := src.EntrySlugs()
	if err != nil {
		return err
	}
	for _, sl := range slugs {
		doc, err := src.GetEntry(sl)
		if err != nil {
			logger.Warn("reindex: load failed", slog.String("slug", sl), slog.String("error", err.Error()))
			continue
		}
		if err := idx.EntryAdded(sl, doc); err != nil {
			logger.Warn("reindex: add failed", slog.String("slug", sl), slog.String("error", err.Error()))
			continue
		}
		logger.Debug("reindex: indexed", slog.String("slug", sl))
	}
	return nil
}
