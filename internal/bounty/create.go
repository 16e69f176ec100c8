package bounty

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/umar-bluered-virtuals/openclaw-acp-sentinel/internal/bountyboard"
	"github.com/umar-bluered-virtuals/openclaw-acp-sentinel/internal/store"
	"github.com/umar-bluered-virtuals/openclaw-acp-sentinel/pkg/models"
)

// Poster is the slice of the bounty board client needed to open a bounty.
type Poster interface {
	CreateBounty(ctx context.Context, req bountyboard.CreateBountyRequest) (*bountyboard.CreateBountyResult, error)
}

// CreateRequest describes a bounty to open on the board.
type CreateRequest struct {
	Title         string
	Description   string
	Budget        float64
	Category      string
	SourceChannel string
}

func (r CreateRequest) validate() error {
	if r.Title == "" {
		return fmt.Errorf("bounty title is required")
	}
	if r.Budget <= 0 {
		return fmt.Errorf("bounty budget must be positive, got %v", r.Budget)
	}
	switch r.Category {
	case models.CategoryDigital, models.CategoryPhysical:
	default:
		return fmt.Errorf("unknown bounty category %q", r.Category)
	}
	return nil
}

// Create opens a bounty on the board and persists the returned id and poster
// secret. The secret is only ever issued once, so the local write is what
// makes the bounty actionable later.
func Create(ctx context.Context, st store.Store, board Poster, req CreateRequest) (models.Bounty, error) {
	if err := req.validate(); err != nil {
		return models.Bounty{}, err
	}
	res, err := board.CreateBounty(ctx, bountyboard.CreateBountyRequest{
		Title:         req.Title,
		Description:   req.Description,
		Budget:        req.Budget,
		Category:      req.Category,
		SourceChannel: req.SourceChannel,
		Nonce:         uuid.NewString(),
	})
	if err != nil {
		return models.Bounty{}, fmt.Errorf("create bounty: %w", err)
	}

	now := time.Now().UTC()
	b := models.Bounty{
		BountyID:      res.BountyID,
		Status:        models.BountyOpen,
		Title:         req.Title,
		Description:   req.Description,
		Budget:        req.Budget,
		Category:      req.Category,
		PosterSecret:  res.PosterSecret,
		SourceChannel: req.SourceChannel,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := st.PutBounty(b); err != nil {
		return models.Bounty{}, fmt.Errorf("bounty %s created remotely but local save failed: %w", b.BountyID, err)
	}
	return b, nil
}
