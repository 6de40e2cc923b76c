package backend

import (
	"context"
	"encoding/json"
	"net/url"

	"github.com/Riboost-Studio/sushiamo-bridge/internal/model"
)

// ClaimedKitchenJob is one row returned by print_claim_jobs.
type ClaimedKitchenJob struct {
	ID         string               `json:"id"`
	Department string               `json:"department"`
	Payload    model.KitchenPayload `json:"payload"`
	Route      *model.RouteSnapshot `json:"route"`
	CreatedAt  string               `json:"created_at"`
}

// ClaimKitchenJobs calls print_claim_jobs(restaurantId, consumerId, limit).
func (c *Client) ClaimKitchenJobs(ctx context.Context, restaurantID, consumerID string, limit int) ([]ClaimedKitchenJob, error) {
	var rows []ClaimedKitchenJob
	err := c.RPC(ctx, "print_claim_jobs", map[string]any{
		"p_restaurant_id": restaurantID,
		"p_consumer_id":   consumerID,
		"p_limit":         limit,
	}, &rows)
	return rows, err
}

// CompleteKitchenJob calls print_complete_job(jobId, consumerId, success, error, meta).
func (c *Client) CompleteKitchenJob(ctx context.Context, jobID, consumerID string, success bool, errMsg string, meta map[string]any) error {
	return c.RPC(ctx, "print_complete_job", map[string]any{
		"p_job_id":      jobID,
		"p_consumer_id": consumerID,
		"p_success":     success,
		"p_error":       nilIfEmpty(errMsg),
		"p_meta":        meta,
	}, nil)
}

// ClaimedFiscalJob is one row returned by physical_receipt_claim_jobs.
type ClaimedFiscalJob struct {
	ID        string              `json:"id"`
	Payload   model.FiscalPayload `json:"payload"`
	CreatedAt string              `json:"created_at"`
}

// ClaimFiscalJobs calls physical_receipt_claim_jobs(restaurantId, consumerId, limit).
func (c *Client) ClaimFiscalJobs(ctx context.Context, restaurantID, consumerID string, limit int) ([]ClaimedFiscalJob, error) {
	var rows []ClaimedFiscalJob
	err := c.RPC(ctx, "physical_receipt_claim_jobs", map[string]any{
		"p_restaurant_id": restaurantID,
		"p_consumer_id":   consumerID,
		"p_limit":         limit,
	}, &rows)
	return rows, err
}

// CompleteFiscalJob calls physical_receipt_complete_job(jobId, consumerId, success, receiptId, error, meta).
func (c *Client) CompleteFiscalJob(ctx context.Context, jobID, consumerID string, success bool, receiptID, errMsg string, meta map[string]any) error {
	return c.RPC(ctx, "physical_receipt_complete_job", map[string]any{
		"p_job_id":      jobID,
		"p_consumer_id": consumerID,
		"p_success":     success,
		"p_receipt_id":  nilIfEmpty(receiptID),
		"p_error":       nilIfEmpty(errMsg),
		"p_meta":        meta,
	}, nil)
}

// ClaimedNonFiscalJob is one row returned by non_fiscal_receipt_claim_jobs.
type ClaimedNonFiscalJob struct {
	ID        string                  `json:"id"`
	Payload   model.NonFiscalPayload `json:"payload"`
	CreatedAt string                  `json:"created_at"`
}

// ClaimNonFiscalJobs calls non_fiscal_receipt_claim_jobs(restaurantId, consumerId, limit).
func (c *Client) ClaimNonFiscalJobs(ctx context.Context, restaurantID, consumerID string, limit int) ([]ClaimedNonFiscalJob, error) {
	var rows []ClaimedNonFiscalJob
	err := c.RPC(ctx, "non_fiscal_receipt_claim_jobs", map[string]any{
		"p_restaurant_id": restaurantID,
		"p_consumer_id":   consumerID,
		"p_limit":         limit,
	}, &rows)
	return rows, err
}

// CompleteNonFiscalJob calls non_fiscal_receipt_complete_job(jobId, consumerId, success, error, meta).
func (c *Client) CompleteNonFiscalJob(ctx context.Context, jobID, consumerID string, success bool, errMsg string, meta map[string]any) error {
	return c.RPC(ctx, "non_fiscal_receipt_complete_job", map[string]any{
		"p_job_id":      jobID,
		"p_consumer_id": consumerID,
		"p_success":     success,
		"p_error":       nilIfEmpty(errMsg),
		"p_meta":        meta,
	}, nil)
}

// RegisterAgentResult is the response of printing_register_agent.
type RegisterAgentResult struct {
	PrinterID string `json:"printer_id"`
}

// RegisterAgent calls printing_register_agent(restaurantId, agentId, printerId, deviceName, appVersion, isActive).
func (c *Client) RegisterAgent(ctx context.Context, restaurantID, agentID string, printerID *string, deviceName, appVersion string, isActive bool) (RegisterAgentResult, error) {
	var result RegisterAgentResult
	err := c.RPC(ctx, "printing_register_agent", map[string]any{
		"p_restaurant_id": restaurantID,
		"p_agent_id":      agentID,
		"p_printer_id":    printerID,
		"p_device_name":   deviceName,
		"p_app_version":   appVersion,
		"p_is_active":     isActive,
	}, &result)
	return result, err
}

// ListedAgent is one row returned by printing_list_agents.
type ListedAgent struct {
	AgentID   string `json:"agent_id"`
	PrinterID string `json:"printer_id"`
}

// ListAgents calls printing_list_agents(restaurantId).
func (c *Client) ListAgents(ctx context.Context, restaurantID string) ([]ListedAgent, error) {
	var rows []ListedAgent
	err := c.RPC(ctx, "printing_list_agents", map[string]any{
		"p_restaurant_id": restaurantID,
	}, &rows)
	return rows, err
}

// RestaurantRow is a row of the restaurants table.
type RestaurantRow struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	City     string          `json:"city"`
	OwnerID  string          `json:"owner_id"`
	Settings json.RawMessage `json:"settings"`
}

// FetchOwnedRestaurants returns restaurants owned by userID, most recent
// first (spec.md 4.2).
func (c *Client) FetchOwnedRestaurants(ctx context.Context, userID string) ([]RestaurantRow, error) {
	var rows []RestaurantRow
	q := url.Values{
		"owner_id": []string{"eq." + userID},
		"order":    []string{"id.desc"},
	}
	err := c.Table(ctx, "restaurants", q, &rows)
	return rows, err
}

// FetchRestaurant returns a single restaurant by id.
func (c *Client) FetchRestaurant(ctx context.Context, id string) (*RestaurantRow, error) {
	var rows []RestaurantRow
	q := url.Values{"id": []string{"eq." + id}, "limit": []string{"1"}}
	if err := c.Table(ctx, "restaurants", q, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

// UserRoleRow is a row of the user_roles table.
type UserRoleRow struct {
	UserID       string `json:"user_id"`
	Role         string `json:"role"`
	RestaurantID string `json:"restaurant_id"`
	CreatedAt    string `json:"created_at"`
}

// FetchUserRoles returns userID's non-owner role memberships, ascending by
// creation time (spec.md 4.2).
func (c *Client) FetchUserRoles(ctx context.Context, userID string) ([]UserRoleRow, error) {
	var rows []UserRoleRow
	q := url.Values{
		"user_id": []string{"eq." + userID},
		"role":    []string{"in.(admin,manager,staff)"},
		"order":   []string{"created_at.asc"},
	}
	err := c.Table(ctx, "user_roles", q, &rows)
	return rows, err
}

func nilIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
