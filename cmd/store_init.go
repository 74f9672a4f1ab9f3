package main

import (
	"context"
	"os"
	"slices"

	"github.com/rotisserie/eris"

	"github.com/sells-group/commission-cli/internal/commission"
	"github.com/sells-group/commission-cli/internal/config"
	"github.com/sells-group/commission-cli/internal/model"
	"github.com/sells-group/commission-cli/internal/store"
	sfpkg "github.com/sells-group/commission-cli/pkg/salesforce"
)

func initStore(ctx context.Context, c *config.Config) (store.Store, error) {
	switch c.Source.Driver {
	case "postgres":
		return store.NewPostgres(ctx, c.Source.DatabaseURL, &store.PoolConfig{MaxConns: c.Source.MaxConns})
	case "sqlite":
		return store.NewSQLite(c.Source.DatabaseURL)
	case "file":
		return store.NewFile(c.Source.ContractsPath, c.Source.ProjectsPath), nil
	case "salesforce":
		client, err := initSalesforce(c.Salesforce)
		if err != nil {
			return nil, err
		}
		return store.NewSalesforce(client), nil
	default:
		return nil, eris.Errorf("unsupported source driver: %s", c.Source.Driver)
	}
}

func initSalesforce(c config.SalesforceConfig) (sfpkg.Client, error) {
	if c.ClientID == "" {
		return nil, eris.New("salesforce client ID is required (COMMISSION_SALESFORCE_CLIENT_ID)")
	}

	pemData, err := os.ReadFile(c.KeyPath)
	if err != nil {
		return nil, eris.Wrap(err, "read salesforce JWT private key")
	}

	client, err := sfpkg.Dial(sfpkg.Creds{
		LoginURL:    c.LoginURL,
		Username:    c.Username,
		ConsumerKey: c.ClientID,
		PrivateKey:  string(pemData),
	}, sfpkg.WithRateLimit(c.RateLimitRPS))
	if err != nil {
		return nil, eris.Wrap(err, "init salesforce")
	}
	return client, nil
}

// commissionRules converts the configured business constants.
func commissionRules(c config.CommissionConfig) commission.Rules {
	return commission.Rules{
		DeductionFactor: c.DeductionFactor,
		DefaultRates:    slices.Clone(c.DefaultRates),
		FallbackRate:    c.FallbackRate,
		UnassignedRate:  c.UnassignedRate,
	}
}

func newAggregator(c config.CommissionConfig, view string) *commission.Aggregator {
	if view == "" {
		view = c.View
	}
	return commission.NewAggregator(commission.NewCalculator(commissionRules(c)), model.View(view))
}

func classify(snap *store.Snapshot) []model.Row {
	return commission.Classify(snap.Contracts, snap.Projects)
}
