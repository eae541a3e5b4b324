// Package notifications tells the studio operator about deliveries and
// failures.
//
// Messages fan out to every configured channel: an ntfy topic and a Telegram
// bot chat. With neither configured the service is a no-op. Delivery
// messages carry the customer, tier, phase and download URL; alerts carry a
// location and a detail line and are reserved for configuration and
// catastrophic failures so routine per-row skips stay in the log.
//
// All workflow code depends only on the Service interface.
package notifications
