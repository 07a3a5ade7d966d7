package billing

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/uwscloud/fabric/pkg/log"
	"github.com/uwscloud/fabric/pkg/storage"
	"github.com/uwscloud/fabric/pkg/types"
)

const (
	trackInterval   = 5 * time.Minute
	invoiceInterval = 24 * time.Hour
)

// Rate is the price for one unit of a service type.
type Rate struct {
	Amount float64
	Unit   string
}

// Rates is the pricing table by service type. Storage is billed per
// GB-month and queues per request; those depend on volumes the control
// plane does not observe, so the usage sweep meters only the time-based
// types and the table documents the rest for the API.
func Rates() map[string]Rate {
	return map[string]Rate{
		"compute":  {Amount: 0.10, Unit: "hours"},
		"storage":  {Amount: 0.05, Unit: "GB"},
		"database": {Amount: 0.15, Unit: "hours"},
		"nosql":    {Amount: 0.12, Unit: "hours"},
		"queue":    {Amount: 0.0001, Unit: "requests"},
		"secrets":  {Amount: 0.08, Unit: "hours"},
	}
}

// hourlyServiceRates maps the service kinds metered by wall clock to
// their billing type and hourly rate.
var hourlyServiceRates = map[types.ServiceKind]struct {
	Type string
	Rate float64
}{
	types.ServiceKindSQL:     {Type: "database", Rate: 0.15},
	types.ServiceKindNoSQL:   {Type: "nosql", Rate: 0.12},
	types.ServiceKindSecrets: {Type: "secrets", Rate: 0.08},
}

const computeRate = 0.10

// Accountant periodically samples running workloads into usage records
// and rolls finished months into invoices.
type Accountant struct {
	store  storage.Store
	stopCh chan struct{}
	logger zerolog.Logger
}

// NewAccountant creates a usage accountant.
func NewAccountant(store storage.Store) *Accountant {
	return &Accountant{
		store:  store,
		stopCh: make(chan struct{}),
		logger: log.WithComponent("billing"),
	}
}

// Start begins the usage tracking and invoice generation loops.
func (a *Accountant) Start() {
	go a.run()
	a.logger.Info().Msg("usage accountant started")
}

// Stop stops the loops.
func (a *Accountant) Stop() {
	close(a.stopCh)
	a.logger.Info().Msg("usage accountant stopped")
}

func (a *Accountant) run() {
	track := time.NewTicker(trackInterval)
	invoice := time.NewTicker(invoiceInterval)
	defer track.Stop()
	defer invoice.Stop()

	for {
		select {
		case <-track.C:
			a.TrackUsage(time.Now().UTC())
		case <-invoice.C:
			a.GenerateDueInvoices(time.Now().UTC())
		case <-a.stopCh:
			return
		}
	}
}

// TrackUsage writes one usage record per running container and per
// hourly-metered running service. Errors are logged per workload and
// never abort the sweep.
func (a *Accountant) TrackUsage(now time.Time) {
	containers, err := a.store.ListContainers()
	if err != nil {
		a.logger.Error().Err(err).Msg("failed to list containers")
	} else {
		for _, ctr := range containers {
			if ctr.Status != types.ContainerStatusRunning {
				continue
			}
			hours := hoursSince(ctr.CreatedAt, now)
			a.record(ctr.ID, "compute", hours, "hours", hours*computeRate, now)
		}
	}

	services, err := a.store.ListServices()
	if err != nil {
		a.logger.Error().Err(err).Msg("failed to list services")
		return
	}
	for _, svc := range services {
		pricing, ok := hourlyServiceRates[svc.Kind]
		if !ok || svc.Status != types.ServiceStatusRunning {
			continue
		}
		hours := hoursSince(svc.CreatedAt, now)
		a.record(svc.ID, pricing.Type, hours, "hours", hours*pricing.Rate, now)
	}
}

func (a *Accountant) record(serviceID, serviceType string, amount float64, unit string, cost float64, now time.Time) {
	rec := &types.UsageRecord{
		ID:          uuid.NewString(),
		ServiceID:   serviceID,
		ServiceType: serviceType,
		Amount:      amount,
		Unit:        unit,
		Cost:        cost,
		Timestamp:   now,
	}
	if err := a.store.CreateUsageRecord(rec); err != nil {
		a.logger.Error().Err(err).
			Str("service_id", serviceID).
			Msg("failed to store usage record")
		return
	}
	a.logger.Debug().
		Str("service_id", serviceID).
		Str("service_type", serviceType).
		Float64("cost", cost).
		Msg("usage recorded")
}

// GenerateDueInvoices rolls the previous month into an invoice on the
// first day of a new month, once per period.
func (a *Accountant) GenerateDueInvoices(now time.Time) {
	if now.Day() != 1 {
		return
	}

	prev := now.AddDate(0, 0, -1)
	period := prev.Format("2006-01")

	invoices, err := a.store.ListInvoices()
	if err != nil {
		a.logger.Error().Err(err).Msg("failed to list invoices")
		return
	}
	for _, inv := range invoices {
		if inv.Period == period {
			return
		}
	}

	if _, err := a.GenerateInvoice(period); err != nil {
		a.logger.Error().Err(err).Str("period", period).Msg("failed to generate invoice")
	}
}

// GenerateInvoice aggregates a month's usage (period "2006-01") into
// an invoice. Months with no usage produce no invoice.
func (a *Accountant) GenerateInvoice(period string) (*types.Invoice, error) {
	start, err := time.Parse("2006-01", period)
	if err != nil {
		return nil, fmt.Errorf("invalid period %q: %w", period, err)
	}
	end := start.AddDate(0, 1, 0)

	records, err := a.store.ListUsageRecords()
	if err != nil {
		return nil, fmt.Errorf("failed to list usage records: %w", err)
	}

	total := 0.0
	breakdown := map[string]float64{}
	for _, rec := range records {
		if rec.Timestamp.Before(start) || !rec.Timestamp.Before(end) {
			continue
		}
		total += rec.Cost
		breakdown[rec.ServiceType] += rec.Cost
	}
	if total == 0 {
		return nil, nil
	}

	now := time.Now().UTC()
	invoice := &types.Invoice{
		ID:          fmt.Sprintf("inv_monthly_%s_%d", start.Format("200601"), now.Unix()),
		Period:      period,
		StartDate:   start,
		EndDate:     end,
		TotalAmount: total,
		Status:      "pending",
		DueDate:     end.AddDate(0, 0, 30),
		Breakdown:   breakdown,
		CreatedAt:   now,
	}
	if err := a.store.CreateInvoice(invoice); err != nil {
		return nil, fmt.Errorf("failed to store invoice: %w", err)
	}

	a.logger.Info().
		Str("invoice_id", invoice.ID).
		Str("period", period).
		Float64("total", total).
		Msg("invoice generated")
	return invoice, nil
}

// UsageSummary returns all usage records with their running total.
func (a *Accountant) UsageSummary() (map[string]any, error) {
	records, err := a.store.ListUsageRecords()
	if err != nil {
		return nil, fmt.Errorf("failed to list usage records: %w", err)
	}

	total := 0.0
	breakdown := map[string]float64{}
	for _, rec := range records {
		total += rec.Cost
		breakdown[rec.ServiceType] += rec.Cost
	}

	return map[string]any{
		"usage":      records,
		"total_cost": total,
		"breakdown":  breakdown,
	}, nil
}

// Invoices returns all generated invoices.
func (a *Accountant) Invoices() ([]*types.Invoice, error) {
	return a.store.ListInvoices()
}

func hoursSince(start, now time.Time) float64 {
	if start.IsZero() || start.After(now) {
		return 0
	}
	return now.Sub(start).Hours()
}
