// Package events provides the lifecycle event bus for deployment and
// validation operations.
//
// The bus renders human-readable messages from reason-keyed templates and
// fans events out to subscribers over buffered channels. Publishing is
// non-blocking by design: a subscriber that falls behind misses events
// rather than stalling the deployment poll loop or the validation pipeline.
//
// Components access the bus through the API layer and must nil-check it,
// since the bus is optional wiring:
//
//	if bus := api.GetEventBus(); bus != nil {
//		bus.PublishDeploymentTransition(slug, from, to)
//	}
//
// Subscribers read until the channel closes:
//
//	for event := range bus.Subscribe() {
//		fmt.Println(event.Message)
//	}
//
// Event reasons map one-to-one onto deployment state machine transitions and
// validation verdicts; message templates can be customized per reason via
// SetTemplate for alternate surfaces.
package events
