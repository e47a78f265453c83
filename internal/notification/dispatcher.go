// Package notification delivers best-effort web push notifications to
// subscribed devices. Delivery never carries a retry queue: a transient
// failure is counted and forgotten, and an endpoint the provider reports as
// gone is deactivated.
package notification

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/SherClockHolmes/webpush-go"

	"maintenance-backend/internal/model"
	"maintenance-backend/internal/store"
)

// Sender defines the interface for sending a web push notification.
type Sender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is a real implementation of Sender using the webpush library.
type WebPushSender struct{}

// Send sends a notification using the webpush library.
func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// target selects the subscription set a queued job resolves against.
type target struct {
	userID  string
	userIDs []string
	ip      string
	all     bool
}

type job struct {
	target  target
	payload Payload
}

// Dispatcher sends push notifications, either synchronously (API surface,
// tests) or through a bounded worker pool for lifecycle fan-out that must
// never delay the caller.
type Dispatcher struct {
	store   store.Store
	webpush *webpush.Options
	sender  Sender
	size    int
	jobs    chan job
}

// NewDispatcher creates a dispatcher with the given worker pool size and
// queue capacity.
func NewDispatcher(s store.Store, webpushOptions *webpush.Options, size, queueSize int) *Dispatcher {
	return &Dispatcher{
		store:   s,
		webpush: webpushOptions,
		sender:  &WebPushSender{},
		size:    size,
		jobs:    make(chan job, queueSize),
	}
}

// Start launches the worker goroutines.
func (d *Dispatcher) Start(ctx context.Context) {
	for i := 0; i < d.size; i++ {
		go d.worker(ctx, i)
	}
}

func (d *Dispatcher) worker(ctx context.Context, id int) {
	log.Printf("push worker %d started", id)
	for {
		select {
		case j := <-d.jobs:
			d.process(ctx, j)
		case <-ctx.Done():
			log.Printf("push worker %d shutting down", id)
			return
		}
	}
}

func (d *Dispatcher) process(ctx context.Context, j job) {
	var (
		res Result
		err error
	)
	switch {
	case j.target.all:
		res, err = d.SendToAll(ctx, j.payload)
	case j.target.userID != "":
		res, err = d.SendToUser(ctx, j.target.userID, j.payload)
	case len(j.target.userIDs) > 0:
		res, err = d.SendToUsers(ctx, j.target.userIDs, j.payload)
	case j.target.ip != "":
		res, err = d.SendToIP(ctx, j.target.ip, j.payload)
	default:
		return
	}
	if err != nil {
		log.Printf("push dispatch failed: %v", err)
		return
	}
	if res.Failed > 0 {
		log.Printf("push dispatch: %d sent, %d failed", res.Success, res.Failed)
	}
}

// enqueue hands a job to the pool without blocking. A saturated queue drops
// the notification; delivery is best-effort and the lifecycle operation has
// already committed.
func (d *Dispatcher) enqueue(j job) {
	select {
	case d.jobs <- j:
	default:
		log.Printf("push queue full, dropping notification %q", j.payload.Title)
	}
}

// DispatchToUser queues a notification for every active device of one user.
func (d *Dispatcher) DispatchToUser(userID string, n Payload) {
	d.enqueue(job{target: target{userID: userID}, payload: n})
}

// DispatchToUsers queues a notification for the active devices of a set of
// users.
func (d *Dispatcher) DispatchToUsers(userIDs []string, n Payload) {
	if len(userIDs) == 0 {
		return
	}
	d.enqueue(job{target: target{userIDs: userIDs}, payload: n})
}

// SendToUser resolves a user's active subscriptions and delivers to them.
func (d *Dispatcher) SendToUser(ctx context.Context, userID string, n Payload) (Result, error) {
	subs, err := d.store.ActiveSubscriptionsByUser(ctx, userID)
	if err != nil {
		return Result{}, err
	}
	return d.SendToSubscriptions(ctx, subs, n), nil
}

// SendToIP delivers to the active subscriptions registered from one address.
func (d *Dispatcher) SendToIP(ctx context.Context, ip string, n Payload) (Result, error) {
	subs, err := d.store.ActiveSubscriptionsByIP(ctx, ip)
	if err != nil {
		return Result{}, err
	}
	return d.SendToSubscriptions(ctx, subs, n), nil
}

// SendToUsers delivers to the active subscriptions of several users.
func (d *Dispatcher) SendToUsers(ctx context.Context, userIDs []string, n Payload) (Result, error) {
	subs, err := d.store.ActiveSubscriptionsByUsers(ctx, userIDs)
	if err != nil {
		return Result{}, err
	}
	return d.SendToSubscriptions(ctx, subs, n), nil
}

// SendToAll delivers to every active subscription.
func (d *Dispatcher) SendToAll(ctx context.Context, n Payload) (Result, error) {
	subs, err := d.store.ActiveSubscriptions(ctx)
	if err != nil {
		return Result{}, err
	}
	return d.SendToSubscriptions(ctx, subs, n), nil
}

// SendToSubscriptions delivers one payload to each subscription, tallying
// success and failure. Deliveries are independent: one dead endpoint never
// aborts the batch. Endpoints the provider reports gone (404/410) are
// deactivated; other failures leave the subscription untouched.
func (d *Dispatcher) SendToSubscriptions(ctx context.Context, subs []model.PushSubscription, n Payload) Result {
	if len(subs) == 0 {
		return Result{}
	}

	body, err := json.Marshal(n.withDefaults())
	if err != nil {
		log.Printf("failed to marshal push payload: %v", err)
		return Result{Failed: len(subs)}
	}

	var success, failed int64
	var wg sync.WaitGroup
	for _, sub := range subs {
		wg.Add(1)
		go func(sub model.PushSubscription) {
			defer wg.Done()
			if d.sendOne(ctx, sub, body) {
				atomic.AddInt64(&success, 1)
			} else {
				atomic.AddInt64(&failed, 1)
			}
		}(sub)
	}
	wg.Wait()

	return Result{Success: int(success), Failed: int(failed)}
}

func (d *Dispatcher) sendOne(ctx context.Context, sub model.PushSubscription, body []byte) bool {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := d.sender.Send(body, wpSub, d.webpush)
	if err != nil {
		log.Printf("error sending notification to %s: %v", sub.Endpoint, err)
		return false
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusGone || resp.StatusCode == http.StatusNotFound:
		log.Printf("subscription %s is gone (status %d), deactivating", sub.Endpoint, resp.StatusCode)
		if err := d.store.DeactivateSubscriptionByID(ctx, sub.ID); err != nil {
			log.Printf("failed to deactivate subscription %s: %v", sub.ID, err)
		}
		return false
	case resp.StatusCode >= 400:
		log.Printf("push provider returned %d for %s", resp.StatusCode, sub.Endpoint)
		return false
	}

	if err := d.store.TouchSubscription(ctx, sub.ID, time.Now()); err != nil {
		log.Printf("failed to update last_used for subscription %s: %v", sub.ID, err)
	}
	return true
}
