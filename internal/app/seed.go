package app

import (
	"context"
	"fmt"

	"github.com/cloudboost/cloudboost-api/pkg/automation"
	"github.com/cloudboost/cloudboost-api/pkg/domain"
	"github.com/google/uuid"
)

// SeedTemplates adds every built-in workflow template to the tenant as a draft
// workflow owned by its first admin. Templates already present are skipped, so
// reseeding is harmless. It returns the number of workflows created.
func (a *App) SeedTemplates(ctx context.Context, tenantDomain string) (int, error) {
	t, err := a.Tenants.GetByDomain(ctx, tenantDomain)
	if err != nil {
		return 0, fmt.Errorf("tenant %q: %w", tenantDomain, err)
	}

	owner, err := a.firstAdmin(ctx, t.ID)
	if err != nil {
		return 0, err
	}

	existing, err := a.Automation.ListWorkflows(ctx, t.ID, "")
	if err != nil {
		return 0, err
	}
	seeded := make(map[string]bool, len(existing))
	for _, w := range existing {
		if w.Template != "" {
			seeded[w.Template] = true
		}
	}

	created := 0
	for _, tmpl := range automation.TemplateList() {
		if seeded[tmpl.Key] {
			continue
		}
		w, err := a.Automation.CreateWorkflow(ctx, t.ID, owner, automation.WorkflowInput{
			Template: tmpl.Key,
			Status:   domain.WorkflowDraft,
		})
		if err != nil {
			return created, fmt.Errorf("template %s: %w", tmpl.Key, err)
		}
		a.Logger.Info("seeded workflow", "tenant_id", t.ID, "workflow_id", w.ID, "template", tmpl.Key)
		created++
	}
	return created, nil
}

func (a *App) firstAdmin(ctx context.Context, tenantID uuid.UUID) (uuid.UUID, error) {
	users, _, err := a.Users.ListByTenant(ctx, tenantID, domain.NewPage(1, 100, 100))
	if err != nil {
		return uuid.Nil, err
	}
	for _, u := range users {
		if u.IsAdmin() {
			return u.ID, nil
		}
	}
	return uuid.Nil, fmt.Errorf("tenant has no admin user")
}
