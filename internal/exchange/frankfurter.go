package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"mybank/internal/domain"
)

type latestRates struct {
	Amount decimal.Decimal            `json:"amount"`
	Base   string                     `json:"base"`
	Date   string                     `json:"date"`
	Rates  map[string]decimal.Decimal `json:"rates"`
}

// FrankfurterClient looks rates up on a Frankfurter API instance.
type FrankfurterClient struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

func NewFrankfurterClient(baseURL string, timeout time.Duration, logger *slog.Logger) *FrankfurterClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &FrankfurterClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

func (c *FrankfurterClient) Rate(ctx context.Context, from, to domain.Currency) (decimal.Decimal, error) {
	if from == to {
		return decimal.NewFromInt(1), nil
	}

	q := url.Values{}
	q.Set("from", from.String())
	q.Set("to", to.String())
	endpoint := fmt.Sprintf("%s/v1/latest?%s", c.baseURL, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return decimal.Zero, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("fetch rate %s/%s: %w", from, to, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, fmt.Errorf("fetch rate %s/%s: unexpected status %d", from, to, resp.StatusCode)
	}

	var latest latestRates
	if err := json.NewDecoder(resp.Body).Decode(&latest); err != nil {
		return decimal.Zero, fmt.Errorf("decode rate %s/%s: %w", from, to, err)
	}

	rate, ok := latest.Rates[to.String()]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s to %s", ErrRateNotFound, from, to)
	}

	c.logger.DebugContext(ctx, "Fetched exchange rate",
		slog.String("from", from.String()),
		slog.String("to", to.String()),
		slog.String("rate", rate.String()),
		slog.String("date", latest.Date))

	return rate, nil
}

func (c *FrankfurterClient) Convert(ctx context.Context, amount decimal.Decimal, from, to domain.Currency) (decimal.Decimal, error) {
	rate, err := c.Rate(ctx, from, to)
	if err != nil {
		return decimal.Zero, err
	}
	return amount.Mul(rate).Round(amountPlaces), nil
}
