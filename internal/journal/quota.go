package journal

// Subscription plans.
const (
	PlanFree = "free"
	PlanPro  = "pro"
)

// Owner identifies who is acting and under which plan.
type Owner struct {
	UserID string
	Plan   string
}

// Free reports whether the owner is on the free plan. An unknown plan is
// treated as free.
func (o Owner) Free() bool {
	return o.Plan != PlanPro
}

// Quota decides whether an owner with saved decisions may save another.
type Quota interface {
	Allow(owner Owner, saved int) error
}

// FreeTierQuota caps free owners at Limit decisions. Limit <= 0 disables it.
type FreeTierQuota struct {
	Limit int
}

func (q FreeTierQuota) Allow(owner Owner, saved int) error {
	if q.Limit > 0 && owner.Free() && saved >= q.Limit {
		return ErrQuotaExceeded
	}
	return nil
}

// Unlimited never rejects a save.
type Unlimited struct{}

func (Unlimited) Allow(Owner, int) error { return nil }
