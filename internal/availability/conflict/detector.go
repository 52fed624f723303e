package conflict

import (
	"context"
	"time"

	"fleetops/pkg/model"
)

// Overlaps tests two half-open windows [aStart, aEnd) and [bStart, bEnd) on
// the same calendar day. A nil start is treated as the beginning of the day
// and a nil end as the end of the day, so an all-day window overlaps every
// other window. Touching boundaries do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd *time.Time) bool {
	// existing.start < candidate.end
	startsBeforeEnd := aStart == nil || bEnd == nil || aStart.Before(*bEnd)
	// existing.end > candidate.start
	endsAfterStart := aEnd == nil || bStart == nil || aEnd.After(*bStart)
	return startsBeforeEnd && endsAfterStart
}

// BlockFinder is the read surface the detector needs from the block store.
type BlockFinder interface {
	FindForDay(ctx context.Context, vehicleID string, date time.Time) ([]*model.AvailabilityBlock, error)
}

// Options narrow a conflict check. ExcludeBlockID skips the named block so a
// block can be re-validated against its neighbours during an update.
// OnlyTypes, when non-empty, restricts the check to those block types;
// IgnoreTypes removes types from consideration. OnlyTypes wins when both are
// set.
type Options struct {
	ExcludeBlockID string
	OnlyTypes      []model.BlockType
	IgnoreTypes    []model.BlockType
}

func (o Options) considers(t model.BlockType) bool {
	if len(o.OnlyTypes) > 0 {
		for _, allowed := range o.OnlyTypes {
			if t == allowed {
				return true
			}
		}
		return false
	}
	for _, ignored := range o.IgnoreTypes {
		if t == ignored {
			return false
		}
	}
	return true
}

// Detector answers whether a candidate window collides with stored blocks.
// Pure read; callers re-run it inside their transaction before committing.
type Detector struct {
	blocks BlockFinder
}

func NewDetector(blocks BlockFinder) *Detector {
	return &Detector{blocks: blocks}
}

// FirstConflict returns the first stored block for (vehicleID, date) whose
// window overlaps [start, end), or nil when the window is free. Returning the
// block lets callers build a human-readable rejection.
func (d *Detector) FirstConflict(ctx context.Context, vehicleID string, date time.Time, start, end *time.Time, opts Options) (*model.AvailabilityBlock, error) {
	existing, err := d.blocks.FindForDay(ctx, vehicleID, model.DayOf(date))
	if err != nil {
		return nil, err
	}

	for _, b := range existing {
		if opts.ExcludeBlockID != "" && b.ID == opts.ExcludeBlockID {
			continue
		}
		if !opts.considers(b.BlockType) {
			continue
		}
		if Overlaps(b.StartTime, b.EndTime, start, end) {
			return b, nil
		}
	}
	return nil, nil
}

// HasConflict is FirstConflict without the conflicting block.
func (d *Detector) HasConflict(ctx context.Context, vehicleID string, date time.Time, start, end *time.Time, opts Options) (bool, error) {
	block, err := d.FirstConflict(ctx, vehicleID, date, start, end, opts)
	if err != nil {
		return false, err
	}
	return block != nil, nil
}
