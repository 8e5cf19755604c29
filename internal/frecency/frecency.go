// Package frecency scores directories by how often and how recently they were visited.
//
// A score is log(1+visits) * 2^(-age/halfLife). The logarithm keeps a very
// popular directory from dominating forever; the decay multiplies rather than
// adds, so a directory nobody visits anymore fades out however often it was
// used in the past.
package frecency

import (
	"math"
	"time"

	"github.com/pbaille/hop/internal/domain"
)

// DefaultHalfLife is the age at which a directory's score halves
const DefaultHalfLife = 14 * 24 * time.Hour

// Model computes frecency scores
type Model struct {
	HalfLife time.Duration
}

// New returns a Model; a non-positive halfLife means DefaultHalfLife
func New(halfLife time.Duration) Model {
	if halfLife <= 0 {
		halfLife = DefaultHalfLife
	}
	return Model{HalfLife: halfLife}
}

// Frequency is the visit term
func Frequency(visits int64) float64 {
	if visits < 0 {
		visits = 0
	}
	return math.Log1p(float64(visits))
}

// Recency is the decay term for an entry last visited at last, seen from now.
// Visits in the future (clock skew between shells) count as age zero.
func (m Model) Recency(last, now time.Time) float64 {
	age := now.Sub(last)
	if age < 0 {
		age = 0
	}
	return math.Exp2(-float64(age) / float64(m.halfLife()))
}

// Score returns the frecency of e at now
func (m Model) Score(e domain.Entry, now time.Time) float64 {
	return Frequency(e.Visits) * m.Recency(e.LastVisited, now)
}

func (m Model) halfLife() time.Duration {
	if m.HalfLife <= 0 {
		return DefaultHalfLife
	}
	return m.HalfLife
}
