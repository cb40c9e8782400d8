package clicks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sundayezeilo/linkmetrics/internal/errx"
	"github.com/sundayezeilo/linkmetrics/internal/idgen"
	"github.com/sundayezeilo/linkmetrics/internal/links"
)

// LinkLookup loads the link a click targets. links.Repository satisfies it.
type LinkLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (links.Link, error)
}

// ClickRecorder records one click.
type ClickRecorder interface {
	Record(ctx context.Context, in ClickInput) (ClickResult, error)
}

// Recorder classifies clicks and stores them with their counter updates.
type Recorder struct {
	links      LinkLookup
	store      Store
	classifier Classifier
	geo        GeoLocator
	unique     UniqueTracker
	ids        idgen.Generator
	logger     *slog.Logger
	now        func() time.Time
}

// RecorderConfig holds the recorder's collaborators. Nil fields get
// defaults; UniqueTracker has none and must be set.
type RecorderConfig struct {
	Classifier    Classifier
	GeoLocator    GeoLocator
	UniqueTracker UniqueTracker
	IDGenerator   idgen.Generator
	Logger        *slog.Logger
	Now           func() time.Time
}

// NewRecorder creates a Recorder.
func NewRecorder(lookup LinkLookup, store Store, cfg RecorderConfig) *Recorder {
	classifier := cfg.Classifier
	if classifier == nil {
		classifier = NewClassifier()
	}
	geo := cfg.GeoLocator
	if geo == nil {
		geo = NoopLocator{}
	}
	ids := cfg.IDGenerator
	if ids == nil {
		ids = idgen.NewV7()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Recorder{
		links:      lookup,
		store:      store,
		classifier: classifier,
		geo:        geo,
		unique:     cfg.UniqueTracker,
		ids:        ids,
		logger:     logger,
		now:        now,
	}
}

// Record stores one click on an active, unexpired link. Classification,
// geo and uniqueness failures degrade to unknown values; only storage
// errors and unavailable links fail the call.
func (r *Recorder) Record(ctx context.Context, in ClickInput) (ClickResult, error) {
	const op = "clicks.Recorder.Record"

	if in.LinkID == uuid.Nil {
		return ClickResult{}, errx.E(op, errx.Invalid, errors.New("link id is required"))
	}
	ip := strings.TrimSpace(in.IPAddress)
	if ip == "" {
		return ClickResult{}, errx.E(op, errx.Invalid, errors.New("ip address is required"))
	}
	if in.ID == uuid.Nil {
		id, err := r.ids.Generate()
		if err != nil {
			return ClickResult{}, errx.E(op, errx.Internal, err)
		}
		in.ID = id
	}
	clickedAt := in.ClickedAt
	if clickedAt.IsZero() {
		clickedAt = r.now()
	}
	clickedAt = clickedAt.UTC()

	link, err := r.links.GetByID(ctx, in.LinkID)
	switch {
	case errx.Is(err, errx.NotFound):
		return ClickResult{}, errx.E(op, errx.NotFound, fmt.Errorf("%w: %s", links.ErrLinkUnavailable, in.LinkID))
	case err != nil:
		return ClickResult{}, errx.E(op, errx.KindOf(err), err)
	case !link.IsResolvable(clickedAt):
		return ClickResult{}, errx.E(op, errx.NotFound, fmt.Errorf("%w: %s", links.ErrLinkUnavailable, in.LinkID))
	}

	class := r.classifier.Classify(in.UserAgent)

	click := Click{
		ID:         in.ID,
		LinkID:     link.ID,
		OwnerID:    link.OwnerID,
		IPAddress:  ip,
		UserAgent:  truncate(in.UserAgent, maxUserAgentLength),
		Referrer:   truncate(strings.TrimSpace(in.Referrer), maxReferrerLength),
		Browser:    class.Browser,
		OS:         class.OS,
		DeviceType: class.DeviceType,
		IsBot:      class.IsBot,
		Campaign:   in.Campaign,
		ClickedAt:  clickedAt,
	}

	if loc, err := r.geo.Locate(ctx, ip); err != nil {
		r.logger.DebugContext(ctx, "geo lookup failed", "error", err.Error())
	} else {
		click.Country = nonEmpty(loc.Country)
		click.City = nonEmpty(loc.City)
	}

	if r.unique != nil {
		unique, err := r.unique.IsUnique(ctx, link.ID, ip, clickedAt)
		if err != nil {
			r.logger.WarnContext(ctx, "unique check failed, recording as repeat",
				"link_id", link.ID.String(),
				"error", err.Error(),
			)
		}
		click.IsUnique = unique
	}

	inserted, err := r.store.Insert(ctx, click)
	if err != nil {
		return ClickResult{}, errx.E(op, errx.KindOf(err), err)
	}
	if !inserted {
		r.logger.DebugContext(ctx, "duplicate click ignored", "click_id", click.ID.String())
	}
	return ClickResult{Click: click, Duplicate: !inserted}, nil
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
