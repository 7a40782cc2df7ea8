// Package alerts is the alert manager facade. It composes the alert store,
// the descriptor registry and the notification dispatcher, and adds a
// retention sweep for cleared alerts and a webhook receiver that forwards the
// pending count to Teams, Slack, PagerDuty, or generic HTTP targets.
package alerts
