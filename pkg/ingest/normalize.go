package ingest

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Zerofisher/marinedb/pkg/model"
	"github.com/Zerofisher/marinedb/pkg/store"
)

// Normalizer decomposes an occurrence into its entities and writes the fact
// record linking them. It must run inside an open batch.
type Normalizer struct {
	w      store.Writer
	logger *slog.Logger
}

// NewNormalizer returns a Normalizer writing through w.
func NewNormalizer(w store.Writer, logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Normalizer{w: w, logger: logger}
}

// Normalize resolves organism, observer, location, event, media and dataset
// metadata in that order, then upserts the record. It returns the links
// written into the record.
func (n *Normalizer) Normalize(ctx context.Context, o model.Occurrence) (model.Links, error) {
	var (
		links model.Links
		err   error
	)
	log := n.logger.With("occurrence_id", o.OccurrenceID)

	if links.OrganismID, err = n.w.ResolveOrganism(ctx, o.Organism); err != nil {
		return model.Links{}, fmt.Errorf("organism: %w", err)
	}
	log.Debug("organism resolved", "organism_id", links.OrganismID)

	if links.ObserverID, err = n.w.ResolveObserver(ctx, o.Observer); err != nil {
		return model.Links{}, fmt.Errorf("observer: %w", err)
	}
	log.Debug("observer resolved", "observer_id", links.ObserverID.String())

	if links.LocationID, err = n.w.ResolveLocation(ctx, o.Location); err != nil {
		return model.Links{}, fmt.Errorf("location: %w", err)
	}
	log.Debug("location resolved", "location_id", links.LocationID.String())

	if links.EventID, err = n.w.ResolveEvent(ctx, o.Event); err != nil {
		return model.Links{}, fmt.Errorf("event: %w", err)
	}
	log.Debug("event resolved", "event_id", links.EventID)

	if links.MediaID, err = n.w.ResolveMedia(ctx, o.Media); err != nil {
		return model.Links{}, fmt.Errorf("media: %w", err)
	}
	log.Debug("media resolved", "media_id", links.MediaID.String())

	if links.DatasetMetadataID, err = n.w.InsertDatasetMetadata(ctx, o.DatasetMetadata); err != nil {
		return model.Links{}, fmt.Errorf("dataset metadata: %w", err)
	}
	log.Debug("dataset metadata inserted", "dataset_metadata_id", links.DatasetMetadataID.String())

	if o.Notes.Valid {
		log.Debug("notes parsed", "keys", len(o.Notes.Values))
	}

	if err := n.w.UpsertRecord(ctx, model.NewRecord(o, links)); err != nil {
		return model.Links{}, fmt.Errorf("record: %w", err)
	}
	log.Debug("record written")
	return links, nil
}
