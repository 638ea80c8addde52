/*
Package event provides the broadcast hub that connects the document watcher to
every connected viewer.

# Model

A ChangeEvent means "the watched document's content changed". It carries no
identity beyond its occurrence and is not retained after delivery.

A Subscriber is one live consumer, normally one streaming HTTP client. It is
created with Hub.Subscribe and removed with Hub.Unsubscribe; its channel C is
closed on removal so a ranging consumer terminates.

# Delivery

Hub.Publish delivers to the subscribers registered at the moment of the call,
in publish order per subscriber. Delivery is a non-blocking send: when a
subscriber's channel is full the event is dropped for that subscriber only.
A missed update is superseded by the next one, so the viewer never stays
stale for longer than one edit.

	hub := event.NewHub()
	defer hub.Close()

	sub := hub.Subscribe()
	defer hub.Unsubscribe(sub.ID)

	for ev := range sub.C {
		// reload
	}

# Watermill mirror

Every published event is also published as JSON on the ChangesTopic of an
in-process watermill GoChannel (Hub.PubSub). LogChanges consumes it to log
changes off the watcher's goroutine.
*/
package event
