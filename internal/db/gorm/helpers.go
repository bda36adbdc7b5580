package gorm

import (
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"gorm.io/gorm"

	"github.com/thebtf/decision-fitness/internal/db"
	"github.com/thebtf/decision-fitness/pkg/models"
)

// inClauseChunk keeps IN (...) lists under SQLite's bound-variable limit.
const inClauseChunk = 500

// EnsureDecisionExists returns db.ErrDecisionNotFound when no decision row
// carries the given ID. Call it inside the writing transaction.
func EnsureDecisionExists(tx *gorm.DB, decisionID string) error {
	var n int64
	if err := tx.Model(&Decision{}).Where("id = ?", decisionID).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return db.ErrDecisionNotFound
	}
	return nil
}

// touchDecision bumps the parent's updated_at after a sub-record write.
func touchDecision(tx *gorm.DB, decisionID, at string) error {
	if at == "" {
		at = models.FormatTime(time.Now())
	}
	return tx.Model(&Decision{}).Where("id = ?", decisionID).Update("updated_at", at).Error
}

// chunkIDs splits ids into slices of at most size elements.
func chunkIDs(ids []string, size int) [][]string {
	var chunks [][]string
	for len(ids) > size {
		chunks = append(chunks, ids[:size])
		ids = ids[size:]
	}
	if len(ids) > 0 {
		chunks = append(chunks, ids)
	}
	return chunks
}

// epochOf converts a stored timestamp to unix millis, falling back to def.
func epochOf(ts string, def time.Time) int64 {
	if t, err := models.ParseTime(ts); err == nil {
		return t.UnixMilli()
	}
	return def.UnixMilli()
}

// sqlNullString creates a sql.NullString from a string.
func sqlNullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: s, Valid: true}
}

func sqlNullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func intFromNull(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}

// MaxPaginationLimit is the maximum allowed limit for pagination queries.
// This protects against resource exhaustion from excessively large requests.
const MaxPaginationLimit = 1000

// ParseLimitParam parses the "limit" query parameter from an HTTP request.
// Returns defaultLimit if the parameter is missing or invalid.
func ParseLimitParam(r *http.Request, defaultLimit int) int {
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			return parsed
		}
	}
	return defaultLimit
}

// ParseOffsetParam parses the "offset" query parameter from an HTTP request.
// Returns 0 if the parameter is missing or invalid.
func ParseOffsetParam(r *http.Request) int {
	if o := r.URL.Query().Get("offset"); o != "" {
		if parsed, err := strconv.Atoi(o); err == nil && parsed >= 0 {
			return parsed
		}
	}
	return 0
}

// PaginationParams holds pagination parameters.
type PaginationParams struct {
	Limit  int
	Offset int
}

// ParsePaginationParams parses both limit and offset, capping the limit at
// MaxPaginationLimit.
func ParsePaginationParams(r *http.Request, defaultLimit int) PaginationParams {
	return PaginationParams{
		Limit:  min(ParseLimitParam(r, defaultLimit), MaxPaginationLimit),
		Offset: ParseOffsetParam(r),
	}
}

// Window returns the [start, end) bounds of the page within n items.
func (p PaginationParams) Window(n int) (int, int) {
	start := min(p.Offset, n)
	end := n
	if p.Limit > 0 {
		end = min(start+p.Limit, n)
	}
	return start, end
}
