package dvla

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/kirillkom/vehicle-checker/internal/core/domain"
	"github.com/kirillkom/vehicle-checker/internal/infrastructure/resilience"
)

// DirectEndpoint is the DVLA Vehicle Enquiry API. A proxy endpoint speaking
// the same request shape can be used instead, usually without an API key.
const DirectEndpoint = "https://driver-vehicle-licensing.api.gov.uk/vehicle-enquiry/v1/vehicles"

const operationLookup = "vehicle.lookup"

type Options struct {
	APIKey  string
	Timeout time.Duration
	Breaker *resilience.CircuitBreaker
	Now     func() time.Time
}

type Client struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
	breaker    *resilience.CircuitBreaker
	now        func() time.Time
}

func New(endpoint string, options Options) *Client {
	timeout := options.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	now := options.Now
	if now == nil {
		now = time.Now
	}
	return &Client{
		endpoint:   strings.TrimSpace(endpoint),
		apiKey:     strings.TrimSpace(options.APIKey),
		httpClient: &http.Client{Timeout: timeout},
		breaker:    options.Breaker,
		now:        now,
	}
}

func (c *Client) CheckConfigured() error {
	if c.endpoint == "" {
		return domain.NewError(domain.KindConfiguration, domain.MsgLookupNotConfigured, nil)
	}
	return nil
}

type lookupRequest struct {
	RegistrationNumber string `json:"registrationNumber"`
}

type lookupResponse struct {
	TaxStatus         string              `json:"taxStatus"`
	TaxDueDate        *openapi_types.Date `json:"taxDueDate"`
	MOTStatus         string              `json:"motStatus"`
	MOTExpiryDate     *openapi_types.Date `json:"motExpiryDate"`
	Make              string              `json:"make"`
	Colour            string              `json:"colour"`
	FuelType          string              `json:"fuelType"`
	EngineCapacity    *int                `json:"engineCapacity"`
	CO2Emissions      *int                `json:"co2Emissions"`
	YearOfManufacture int                 `json:"yearOfManufacture"`
}

// Lookup makes exactly one request. The breaker can short-circuit it but
// never repeats it.
func (c *Client) Lookup(ctx context.Context, plate domain.Plate) (domain.VehicleRecord, error) {
	if err := c.CheckConfigured(); err != nil {
		return domain.VehicleRecord{}, err
	}
	body, err := json.Marshal(lookupRequest{RegistrationNumber: plate.String()})
	if err != nil {
		return domain.VehicleRecord{}, domain.NewError(domain.KindUnknown, domain.MsgUnknown, err)
	}

	var wire lookupResponse
	call := func(ctx context.Context) error {
		return c.post(ctx, body, &wire)
	}
	if c.breaker != nil {
		err = c.breaker.Call(ctx, operationLookup, call, resilience.ClassifyHTTP)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return domain.VehicleRecord{}, toDomainError(err)
	}
	return c.toRecord(plate, wire), nil
}

func (c *Client) post(ctx context.Context, body []byte, out *lookupResponse) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create lookup request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("vehicle lookup request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return &resilience.StatusError{Service: "vehicle lookup", StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode lookup response: %w", err)
	}
	return nil
}

func (c *Client) toRecord(plate domain.Plate, wire lookupResponse) domain.VehicleRecord {
	record := domain.VehicleRecord{
		RegistrationNumber: plate.String(),
		TaxStatus:          domain.TaxStatus(orDefault(wire.TaxStatus, domain.UnknownValue)),
		TaxDueDate:         wire.TaxDueDate,
		MOTStatus:          orDefault(wire.MOTStatus, domain.NoMOTDetailsHeld),
		MOTExpiryDate:      wire.MOTExpiryDate,
		Make:               orDefault(wire.Make, domain.UnknownValue),
		Colour:             orDefault(wire.Colour, domain.UnknownValue),
		FuelType:           orDefault(wire.FuelType, domain.UnknownValue),
		EngineCapacity:     wire.EngineCapacity,
		CO2Emissions:       wire.CO2Emissions,
		YearOfManufacture:  wire.YearOfManufacture,
	}
	if record.YearOfManufacture == 0 {
		record.YearOfManufacture = c.now().Year()
	}
	return record
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

func toDomainError(err error) error {
	var de *domain.Error
	if errors.As(err, &de) {
		return de
	}
	if resilience.IsCircuitOpen(err) {
		return domain.RemoteStatusError(http.StatusServiceUnavailable, err)
	}
	var se *resilience.StatusError
	if errors.As(err, &se) {
		return domain.RemoteStatusError(se.StatusCode, err)
	}
	return domain.NewError(domain.KindNetwork, domain.MsgNetworkFailure, err)
}
