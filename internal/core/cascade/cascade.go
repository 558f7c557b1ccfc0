package cascade

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/ogurasousui/org-directory/internal/core/assignment"
	"github.com/ogurasousui/org-directory/internal/core/costcenter"
	"github.com/ogurasousui/org-directory/internal/core/employee"
	"github.com/ogurasousui/org-directory/internal/core/lifecycle"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

var effectsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "orgdirectory",
	Subsystem: "cascade",
	Name:      "effects_total",
	Help:      "Responsibility cascade effects applied.",
}, []string{"effect"})

// Clock は現在時刻を提供します。
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now().UTC()
}

// Cascade は割当の書き込みを契機に、原価センタの責任者と所属社員の上長を同期します。
// 処理は1回限りで、自身の更新によって再度起動することはありません。
type Cascade struct {
	costCenters costcenter.Repository
	employees   employee.Repository
	assignments assignment.Repository
	clock       Clock
	logger      *zap.Logger
}

// New は Cascade を生成します。
func New(costCenters costcenter.Repository, employees employee.Repository, assignments assignment.Repository, clock Clock, logger *zap.Logger) *Cascade {
	if clock == nil {
		clock = realClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cascade{
		costCenters: costCenters,
		employees:   employees,
		assignments: assignments,
		clock:       clock,
		logger:      logger,
	}
}

// AfterWrite は割当の作成・更新後に呼び出します。作成時の before は nil です。
func (c *Cascade) AfterWrite(ctx context.Context, before, after *assignment.Assignment) error {
	today := c.today()

	if after != nil && after.IsResponsible && after.ActiveOn(today) {
		return c.becameResponsible(ctx, after)
	}
	if before != nil && before.IsResponsible && before.ActiveOn(today) {
		return c.responsibilityRemoved(ctx, before.CostCenterID, before.ID)
	}
	return nil
}

// AfterDelete は割当の削除後に呼び出します。
func (c *Cascade) AfterDelete(ctx context.Context, deleted *assignment.Assignment) error {
	if deleted == nil || !deleted.IsResponsible || !deleted.ActiveOn(c.today()) {
		return nil
	}
	return c.responsibilityRemoved(ctx, deleted.CostCenterID, deleted.ID)
}

func (c *Cascade) becameResponsible(ctx context.Context, a *assignment.Assignment) error {
	now := c.now()

	center, err := c.costCenters.FindByID(ctx, a.CostCenterID)
	if err != nil {
		return fmt.Errorf("cascade: cost center %s: %w", a.CostCenterID, err)
	}
	if center.ResponsibleID != a.EmployeeID {
		if err := c.costCenters.SetResponsible(ctx, center.ID, a.EmployeeID, now); err != nil {
			return fmt.Errorf("cascade: set responsible: %w", err)
		}
		effectsTotal.WithLabelValues("responsible_set").Inc()
		c.logger.Info("cost center responsible changed",
			zap.String("cost_center_id", center.ID),
			zap.String("previous_responsible_id", center.ResponsibleID),
			zap.String("responsible_id", a.EmployeeID),
		)
	}

	targets, err := c.colocated(ctx, a)
	if err != nil {
		return err
	}
	for _, id := range targets {
		emp, err := c.employees.FindByID(ctx, id)
		if err != nil {
			return fmt.Errorf("cascade: employee %s: %w", id, err)
		}
		if emp.ManagerID != nil && *emp.ManagerID == a.EmployeeID {
			continue
		}
		if err := c.employees.SetManager(ctx, emp.ID, a.EmployeeID, now); err != nil {
			return fmt.Errorf("cascade: set manager: %w", err)
		}
		effectsTotal.WithLabelValues("manager_synced").Inc()
	}
	return nil
}

// colocated は a と同じ原価センタに期間が重なる割当を持つ社員、または原価センタに直接所属する社員を返します。
func (c *Cascade) colocated(ctx context.Context, a *assignment.Assignment) ([]string, error) {
	seen := map[string]struct{}{a.EmployeeID: {}}
	var out []string

	peers, err := c.assignments.ListByCostCenter(ctx, a.CostCenterID)
	if err != nil {
		return nil, fmt.Errorf("cascade: list assignments: %w", err)
	}
	for _, peer := range peers {
		if _, ok := seen[peer.EmployeeID]; ok {
			continue
		}
		if !lifecycle.Overlaps(a.ValidFrom, a.ValidTo, peer.ValidFrom, peer.ValidTo) {
			continue
		}
		seen[peer.EmployeeID] = struct{}{}
		out = append(out, peer.EmployeeID)
	}

	members, err := c.employees.ListByCostCenter(ctx, a.CostCenterID)
	if err != nil {
		return nil, fmt.Errorf("cascade: list employees: %w", err)
	}
	for _, m := range members {
		if _, ok := seen[m.ID]; ok {
			continue
		}
		seen[m.ID] = struct{}{}
		out = append(out, m.ID)
	}
	return out, nil
}

func (c *Cascade) responsibilityRemoved(ctx context.Context, costCenterID, removedID string) error {
	today := c.today()

	remaining, err := c.assignments.ListByCostCenter(ctx, costCenterID)
	if err != nil {
		return fmt.Errorf("cascade: list assignments: %w", err)
	}

	candidates := make([]*assignment.Assignment, 0, len(remaining))
	for _, r := range remaining {
		if r.ID == removedID || !r.IsResponsible || !r.ActiveOn(today) {
			continue
		}
		candidates = append(candidates, r)
	}

	if len(candidates) == 0 {
		// 責任者は必須項目のため、後任が居なければ現状を維持する。
		effectsTotal.WithLabelValues("no_successor").Inc()
		c.logger.Info("no active responsible assignment left, keeping current responsible",
			zap.String("cost_center_id", costCenterID),
		)
		return nil
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if !candidates[i].ValidFrom.Equal(candidates[j].ValidFrom) {
			return candidates[i].ValidFrom.After(candidates[j].ValidFrom)
		}
		if !candidates[i].CreatedAt.Equal(candidates[j].CreatedAt) {
			return candidates[i].CreatedAt.After(candidates[j].CreatedAt)
		}
		return candidates[i].ID > candidates[j].ID
	})

	effectsTotal.WithLabelValues("promoted").Inc()
	return c.becameResponsible(ctx, candidates[0])
}

func (c *Cascade) now() time.Time {
	return c.clock.Now().UTC().Truncate(time.Microsecond)
}

func (c *Cascade) today() time.Time {
	return lifecycle.NormalizeDate(c.clock.Now().UTC())
}
