// Package analytics computes dashboard statistics over a user's decision
// history. Every function is pure; "no data" is reported as a nil pointer
// rather than zero so callers can tell "0%" from "not measurable yet".
//
// Inputs are ordered newest first.
package analytics

import (
	"math"
	"strconv"

	"github.com/thebtf/decision-fitness/pkg/models"
)

// TrendWindow is how many recent decisions feed the trend series.
const TrendWindow = 7

// AvgClarity is the rounded mean score, nil for an empty history.
func AvgClarity(decisions []models.SavedDecision) *int {
	if len(decisions) == 0 {
		return nil
	}
	sum := 0
	for _, d := range decisions {
		sum += d.Score
	}
	return intPtr(roundHalfUp(float64(sum) / float64(len(decisions))))
}

// AvgDoubt is the mean doubt (10 - conviction, or 5 when unknown), nil for
// an empty history.
func AvgDoubt(decisions []models.SavedDecision) *float64 {
	if len(decisions) == 0 {
		return nil
	}
	sum := 0.0
	for _, d := range decisions {
		sum += d.Input.Doubt()
	}
	avg := sum / float64(len(decisions))
	return &avg
}

// Confidence inverts the average doubt onto 0-100.
func Confidence(decisions []models.SavedDecision) *int {
	avg := AvgDoubt(decisions)
	if avg == nil {
		return nil
	}
	return intPtr(confidenceFromDoubt(*avg))
}

// AvgAlignment is the mean of the 1-10 alignment answer scaled to 0-100,
// over decisions that recorded one.
func AvgAlignment(decisions []models.SavedDecision) *int {
	sum, n := 0.0, 0
	for _, d := range decisions {
		if d.Input.Alignment != nil {
			sum += *d.Input.Alignment
			n++
		}
	}
	if n == 0 {
		return nil
	}
	return intPtr(roundHalfUp(sum / float64(n) * 10))
}

// RegretMetrics summarizes follow-ups.
type RegretMetrics struct {
	Rate          *int `json:"regretRate"`
	RegretCount   int  `json:"regretCount"`
	FollowedCount int  `json:"followedCount"`
}

// Regret computes the share of followed-up decisions that are regretted.
// Rate is nil until at least one decision has a follow-up.
func Regret(decisions []models.SavedDecision) RegretMetrics {
	var m RegretMetrics
	for _, d := range decisions {
		if d.FollowUp == nil {
			continue
		}
		m.FollowedCount++
		if d.FollowUp.Regret {
			m.RegretCount++
		}
	}
	if m.FollowedCount > 0 {
		m.Rate = intPtr(roundHalfUp(float64(m.RegretCount) / float64(m.FollowedCount) * 100))
	}
	return m
}

// Trend holds the chronological series over the most recent decisions.
type Trend struct {
	ClarityDelta     *int  `json:"clarityDelta"`
	ConfidenceDelta  *int  `json:"confidenceDelta"`
	ClaritySeries    []int `json:"claritySeries"`
	ConfidenceSeries []int `json:"confidenceSeries"`
	Count            int   `json:"trendCount"`
}

// BuildTrend takes the TrendWindow newest decisions oldest first. Deltas
// are last minus first and need at least two points.
func BuildTrend(decisions []models.SavedDecision) Trend {
	n := min(len(decisions), TrendWindow)
	t := Trend{
		ClaritySeries:    make([]int, 0, n),
		ConfidenceSeries: make([]int, 0, n),
		Count:            n,
	}
	for i := n - 1; i >= 0; i-- {
		d := decisions[i]
		t.ClaritySeries = append(t.ClaritySeries, d.Score)
		t.ConfidenceSeries = append(t.ConfidenceSeries, confidenceFromDoubt(d.Input.Doubt()))
	}
	if n >= 2 {
		t.ClarityDelta = intPtr(t.ClaritySeries[n-1] - t.ClaritySeries[0])
		t.ConfidenceDelta = intPtr(t.ConfidenceSeries[n-1] - t.ConfidenceSeries[0])
	}
	return t
}

// FormatDelta renders a delta with an explicit plus sign for gains.
// Nil yields "".
func FormatDelta(delta *int) string {
	if delta == nil {
		return ""
	}
	if *delta > 0 {
		return "+" + strconv.Itoa(*delta)
	}
	return strconv.Itoa(*delta)
}

func confidenceFromDoubt(doubt float64) int {
	return roundHalfUp((10 - doubt) * 10)
}

func roundHalfUp(v float64) int {
	return int(math.Floor(v + 0.5))
}

func intPtr(v int) *int {
	return &v
}
