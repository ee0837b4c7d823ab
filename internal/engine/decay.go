package engine

import (
	"math"
	"time"
)

// Memory score bounds. Scores never leave this range: the floor keeps
// concepts from being fully forgotten, the ceiling is perfect retention.
const (
	ScoreFloor = 0.1
	ScoreCeil  = 1.0
)

// AdvisoryScore is written when confidence signals are unusable (NaN or
// infinite). It marks "we saw this, trust the estimate loosely".
const AdvisoryScore = 0.3

// InitialScore is assigned to newly observed concepts.
const InitialScore = 0.3

// Modality factor bounds. Each sensing channel gets its own floor: weak
// audio still means the concept was probably heard, so it bottoms out
// higher than a wandering gaze.
const (
	attentionFloor = 0.1
	intentFloor    = 0.3
	audioFloor     = 0.5
)

// Signals carries the optional per-batch confidence estimates supplied by
// external producers. Nil fields mean the producer had nothing to report
// and are treated as full confidence.
type Signals struct {
	SourceTag string   `json:"source_tag,omitempty"`
	Attention *float64 `json:"attention,omitempty"`         // 0-100 attention score
	Intent    *float64 `json:"intent_confidence,omitempty"` // 0-1 classifier confidence
	Audio     *float64 `json:"audio_confidence,omitempty"`  // 0-1 transcription confidence
}

// DecayModel computes retention estimates on an exponential forgetting
// curve, R = exp(-lambda * hours). Lambda defaults to a one-week half-life.
type DecayModel struct {
	Lambda          float64       // decay rate per hour
	ReviewThreshold float64       // scores below this are review-urgent
	MinInterval     time.Duration // naive scheduling floor
	MaxInterval     time.Duration // naive scheduling cap
}

// DefaultDecayModel returns the model with a 7-day half-life.
func DefaultDecayModel() DecayModel {
	return NewDecayModel(168)
}

// NewDecayModel derives the decay rate from a half-life in hours.
func NewDecayModel(halfLifeHours float64) DecayModel {
	if halfLifeHours <= 0 {
		halfLifeHours = 168
	}
	return DecayModel{
		Lambda:          math.Ln2 / halfLifeHours,
		ReviewThreshold: 0.6,
		MinInterval:     time.Hour,
		MaxInterval:     30 * 24 * time.Hour,
	}
}

// Retention returns exp(-lambda * h) for h hours since last exposure.
// Negative elapsed time (clock skew) counts as zero.
func (m DecayModel) Retention(hours float64) float64 {
	if hours < 0 {
		hours = 0
	}
	return math.Exp(-m.Lambda * hours)
}

// Score combines the forgetting curve with the modality factor and clamps
// the result into [ScoreFloor, ScoreCeil]. Unusable signal values collapse
// the whole estimate to AdvisoryScore.
func (m DecayModel) Score(lastSeenAt, now int64, sig Signals) float64 {
	factor, ok := modalityFactor(sig)
	if !ok {
		return AdvisoryScore
	}

	hours := float64(now-lastSeenAt) / float64(time.Hour.Milliseconds())
	score := m.Retention(hours) * factor
	if math.IsNaN(score) || math.IsInf(score, 0) {
		return AdvisoryScore
	}
	return clamp(score, ScoreFloor, ScoreCeil)
}

// Project estimates the score after h more hours without exposure, for
// decay-curve rendering. Pure: no clock, no store access.
func (m DecayModel) Project(score, hours float64) float64 {
	return clamp(score*m.Retention(hours), ScoreFloor, ScoreCeil)
}

// NextNaiveReview schedules the pre-review check for concepts without
// scheduler state. Urgent concepts get checked within the hour; stronger
// ones proportionally to the square of their score, up to the cap.
func (m DecayModel) NextNaiveReview(score float64, now int64) int64 {
	if score < m.ReviewThreshold {
		return now + m.MinInterval.Milliseconds()
	}

	hours := (1 / m.Lambda) * score * score
	d := time.Duration(hours * float64(time.Hour))
	if d < m.MinInterval {
		d = m.MinInterval
	}
	if d > m.MaxInterval {
		d = m.MaxInterval
	}
	return now + d.Milliseconds()
}

// RetentionAfterReview converts a 0-5 review quality into a fresh score.
func RetentionAfterReview(quality int) float64 {
	return clamp(float64(quality)/5, ScoreFloor, ScoreCeil)
}

// modalityFactor computes the geometric mean of the three clamped channel
// confidences. Missing channels contribute a neutral 1.0. Returns ok=false
// when any provided value is NaN or infinite.
func modalityFactor(sig Signals) (float64, bool) {
	attention := 1.0
	if sig.Attention != nil {
		v := *sig.Attention
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, false
		}
		// Producers report attention on a 0-100 scale
		if v > 1 {
			v /= 100
		}
		attention = clamp(v, attentionFloor, 1)
	}

	intent := 1.0
	if sig.Intent != nil {
		v := *sig.Intent
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, false
		}
		intent = clamp(v, intentFloor, 1)
	}

	audio := 1.0
	if sig.Audio != nil {
		v := *sig.Audio
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, false
		}
		audio = clamp(v, audioFloor, 1)
	}

	return math.Cbrt(attention * intent * audio), true
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
