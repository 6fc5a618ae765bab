package commands

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/vatbridge-dev/vatbridge/internal/auth"
	"github.com/vatbridge-dev/vatbridge/internal/config"
	"github.com/vatbridge-dev/vatbridge/internal/fraud"
	"github.com/vatbridge-dev/vatbridge/internal/hmrc"
	"github.com/vatbridge-dev/vatbridge/internal/ledger"
	"github.com/vatbridge-dev/vatbridge/internal/logging"
	"github.com/vatbridge-dev/vatbridge/internal/reconcile"
	"github.com/vatbridge-dev/vatbridge/internal/vat"
)

// app wires the configured collaborators together for one CLI invocation.
// The ledger is opened lazily: obligations or liabilities queries never
// touch the books.
type app struct {
	cfg    *config.Config
	log    *slog.Logger
	tokens *auth.Manager
	client *hmrc.Client
}

func loadApp(configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	log := logging.New(cfg.LogLevel)

	eps, err := hmrc.ProfileEndpoints(cfg.Application.Profile)
	if err != nil {
		return nil, err
	}

	tokens, err := auth.NewManager(auth.Config{
		ClientID:     cfg.Application.ClientID,
		ClientSecret: cfg.Application.ClientSecret,
		AuthorizeURL: eps.OAuthBase + "/oauth/authorize",
		TokenURL:     eps.APIBase + "/oauth/token",
	}, auth.NewFileStore(cfg.Token.File), nil, log)
	if err != nil {
		return nil, err
	}

	headers, err := fraud.NewBuilder(cfg.FraudIdentity())
	if err != nil {
		return nil, fmt.Errorf("fraud header identity: %w", err)
	}

	client := hmrc.NewClient(eps.APIBase, cfg.Business.VRN, tokens, headers, nil, log)
	return &app{cfg: cfg, log: log, tokens: tokens, client: client}, nil
}

// service opens the ledger and builds the reconciliation service.
func (a *app) service() (*reconcile.Service, error) {
	led, err := ledger.Open(a.cfg.Ledger.Kind, a.cfg.Ledger.File)
	if err != nil {
		return nil, fmt.Errorf("opening ledger: %w", err)
	}
	mapper, err := vat.NewMapper(led, a.cfg.Mappings())
	if err != nil {
		return nil, err
	}
	return reconcile.NewService(a.client, mapper, a.cfg.Business.VRN, a.cfg.Audit.Dir, a.log), nil
}

// remoteService builds the service without a ledger, for pass-through
// queries that never compute box values.
func (a *app) remoteService() *reconcile.Service {
	return reconcile.NewService(a.client, nil, a.cfg.Business.VRN, a.cfg.Audit.Dir, a.log)
}

const dateFormat = "2006-01-02"

func parseDateFlag(name, value string) (time.Time, error) {
	t, err := time.Parse(dateFormat, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --%s %q: expected YYYY-MM-DD", name, value)
	}
	return t, nil
}

func parseOptionalDateFlag(name, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	return parseDateFlag(name, value)
}
