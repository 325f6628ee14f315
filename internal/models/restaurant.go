package models

type PlatformFee struct {
	CommissionPct float64 `json:"commission_pct" mapstructure:"commission_pct"`
	FlatFee       float64 `json:"flat_fee" mapstructure:"flat_fee"`
}

// GhostKitchenSettings are a restaurant's defaults, copied into each session at enable time.
type GhostKitchenSettings struct {
	MaxOrders            int                      `json:"max_orders"`
	Platforms            []Platform               `json:"platforms"`
	AutoAccept           bool                     `json:"auto_accept"`
	MinPrepTime          int                      `json:"min_prep_time"` // minutes
	PackagingCost        float64                  `json:"packaging_cost"`
	AutoDisableThreshold float64                  `json:"auto_disable_threshold"` // utilization percent, 0 disables the rule
	PlatformFees         map[Platform]PlatformFee `json:"platform_fees,omitempty"`
}

type Restaurant struct {
	ID                  string               `json:"id"`
	Name                string               `json:"name"`
	Phone               string               `json:"phone"`
	Town                string               `json:"town"`
	Location            Location             `json:"location"`
	Cuisines            []string             `json:"cuisines"`
	ManagerID           string               `json:"manager_id"`
	GhostKitchenEnabled bool                 `json:"ghost_kitchen_enabled"`
	GhostKitchen        GhostKitchenSettings `json:"ghost_kitchen"`
}
