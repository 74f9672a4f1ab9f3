package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/commission-cli/internal/model"
	"github.com/sells-group/commission-cli/pkg/salesforce"
)

// SalesforceStore reads the Contrat__c and Projet__c custom objects.
type SalesforceStore struct {
	client salesforce.Client
}

// NewSalesforce creates a SalesforceStore over an authenticated client.
func NewSalesforce(client salesforce.Client) *SalesforceStore {
	return &SalesforceStore{client: client}
}

func (s *SalesforceStore) Close() error { return nil }

func (s *SalesforceStore) FetchContracts(ctx context.Context) ([]model.ContractRecord, error) {
	recs, err := salesforce.ListContracts(ctx, s.client)
	if err != nil {
		return nil, eris.Wrap(err, "salesforce: fetch contracts")
	}
	out := make([]model.ContractRecord, 0, len(recs))
	for _, r := range recs {
		c := model.ContractRecord{
			ID:             r.ID,
			MonthlyPremium: r.MonthlyPremium,
			RateYear1:      r.RateYear1,
			RateRecurring:  r.RateRecurring,
			Status:         r.Status,
			Carrier:        r.Carrier,
		}
		if p := r.Project; p != nil {
			c.ProjectStatus = p.Status
			c.Project = &model.ProjectLink{
				Salesperson:  p.Salesperson,
				Origin:       p.Origin,
				CreatedAt:    parseDate(p.CreatedDate),
				SubscribedAt: parseDate(p.SubscribedAt),
			}
			if p.Contact != nil {
				c.PostalCode = p.Contact.PostalCode
				c.City = p.Contact.City
			}
		}
		out = append(out, c)
	}
	return out, nil
}

func (s *SalesforceStore) FetchProjects(ctx context.Context) ([]model.ProjectRecord, error) {
	recs, err := salesforce.ListProjects(ctx, s.client)
	if err != nil {
		return nil, eris.Wrap(err, "salesforce: fetch projects")
	}
	out := make([]model.ProjectRecord, 0, len(recs))
	for _, r := range recs {
		p := model.ProjectRecord{
			ID:          r.ID,
			Salesperson: r.Salesperson,
			Origin:      r.Origin,
			CreatedAt:   parseDate(r.CreatedDate),
			Status:      r.Status,
		}
		if r.Contact != nil {
			p.PostalCode = r.Contact.PostalCode
		}
		out = append(out, p)
	}
	return out, nil
}
