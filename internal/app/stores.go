package app

import (
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tribu-research/challenge-backend/internal/assignments"
	"github.com/tribu-research/challenge-backend/internal/challenge"
	"github.com/tribu-research/challenge-backend/internal/memstore"
	"github.com/tribu-research/challenge-backend/internal/models"
	"github.com/tribu-research/challenge-backend/internal/ports"
	"github.com/tribu-research/challenge-backend/internal/presentations"
	"github.com/tribu-research/challenge-backend/internal/videos"
	"github.com/tribu-research/challenge-backend/internal/votes"
	"github.com/tribu-research/challenge-backend/internal/winners"
)

// Stores bundles one implementation of every repository port.
type Stores struct {
	Assignments   ports.AssignmentRepository
	Presentations ports.PresentationRepository
	Videos        ports.VideoRepository
	Votes         ports.VoteRepository
	Winners       ports.WinnerRepository
	Challenge     ports.ChallengeRepository
}

// PostgresStores returns the pgx repositories.
func PostgresStores(pool *pgxpool.Pool) Stores {
	return Stores{
		Assignments:   assignments.NewRepository(pool),
		Presentations: presentations.NewRepository(pool),
		Videos:        videos.NewRepository(pool),
		Votes:         votes.NewRepository(pool),
		Winners:       winners.NewRepository(pool),
		Challenge:     challenge.NewRepository(pool),
	}
}

// MemoryStores returns in-memory repositories with the challenge set to
// now's month and both upload and voting weeks open.
func MemoryStores(store *memstore.Store, now time.Time) Stores {
	store.Challenge().Set(models.ChallengeStatus{
		CurrentMonth:   int(now.Month()),
		CurrentYear:    now.Year(),
		IsWeekOfUpload: true,
		IsWeekOfVoting: true,
	})
	return Stores{
		Assignments:   store.Assignments(),
		Presentations: store.Presentations(),
		Videos:        store.Videos(),
		Votes:         store.Votes(),
		Winners:       store.Winners(),
		Challenge:     store.Challenge(),
	}
}
