package gateway

// Item is a single line item in a checkout preference.
type Item struct {
	Title       string  `json:"title"`
	Quantity    int     `json:"quantity"`
	CurrencyID  string  `json:"currency_id"`
	UnitPrice   float64 `json:"unit_price"`
	Description string  `json:"description,omitempty"`
}

// BackURLs are the browser-redirect targets the gateway sends the buyer to
// after the payment attempt.
type BackURLs struct {
	Success string `json:"success"`
	Failure string `json:"failure"`
	Pending string `json:"pending"`
}

// PreferenceRequest is the payload for creating a checkout preference.
type PreferenceRequest struct {
	Items    []Item   `json:"items"`
	BackURLs BackURLs `json:"back_urls"`
	// AutoReturn "approved" makes the gateway redirect automatically once
	// the payment is approved.
	AutoReturn string `json:"auto_return,omitempty"`
	// ExternalReference correlates gateway events back to a local order.
	ExternalReference string `json:"external_reference,omitempty"`
	NotificationURL   string `json:"notification_url,omitempty"`
}

// Preference is the gateway's representation of a created checkout.
type Preference struct {
	ID string `json:"id"`
	// InitPoint is the production checkout URL the buyer is redirected to.
	InitPoint string `json:"init_point"`
	// SandboxInitPoint is the test-mode checkout URL, used in debug mode.
	SandboxInitPoint string `json:"sandbox_init_point"`
}

// Payment is the authoritative payment record fetched by the webhook.
type Payment struct {
	ID                int64  `json:"id"`
	Status            string `json:"status"`
	ExternalReference string `json:"external_reference"`
}

// WebhookNotification is the body the gateway POSTs to the notification URL.
type WebhookNotification struct {
	Type string `json:"type"`
	Data struct {
		ID string `json:"id"`
	} `json:"data"`
}
