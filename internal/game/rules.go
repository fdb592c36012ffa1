package game

import "time"

// Rules holds the tunable timing and scoring constants of a session.
// Both observed product variants disagree on the scoring constants, so they
// are configuration rather than structural behavior.
type Rules struct {
	// AnswerWindow is how long a question accepts submissions.
	AnswerWindow time.Duration
	// RevealWindow is how long the correct answer stays on screen before the
	// next question.
	RevealWindow time.Duration
	// PointsPerSecond converts remaining answer time into points.
	PointsPerSecond int
	// MinimumPoints is the floor for a correct answer, so any correct answer
	// beats any wrong one.
	MinimumPoints int
}

// DefaultRules returns the production defaults.
func DefaultRules() Rules {
	return Rules{
		AnswerWindow:    30 * time.Second,
		RevealWindow:    5 * time.Second,
		PointsPerSecond: 10,
		MinimumPoints:   50,
	}
}

// Score awards points for a submission. Wrong answers always score zero;
// correct answers scale linearly with remaining time, floored at
// MinimumPoints.
func Score(correct bool, timeLeft time.Duration, r Rules) int {
	if !correct {
		return 0
	}
	points := int(timeLeft.Seconds()) * r.PointsPerSecond
	if points < r.MinimumPoints {
		points = r.MinimumPoints
	}
	return points
}
