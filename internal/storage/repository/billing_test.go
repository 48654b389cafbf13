package repository

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/todo-freemium/internal/models"
)

func promote(periodEnd time.Time) ApplyFunc {
	return func(u *models.User) *models.PaymentTransaction {
		u.SubscriptionState = models.StatePremiumActive
		u.SubscriptionTier = models.TierPremium
		u.SubscriptionStatus = "active"
		u.BillingSubscriptionID = "sub_1"
		u.CurrentPeriodEnd = &periodEnd
		return &models.PaymentTransaction{
			InvoiceID: "in_1", PaymentIntentID: "pi_1", SubscriptionID: "sub_1",
			Amount: 999, Currency: "usd", Status: models.PaymentSucceeded,
		}
	}
}

func TestStorage_ApplySubscriptionEvent(t *testing.T) {
	storage, factory := setupStorage(t)
	ctx := context.Background()
	uid := factory.User(t)
	periodEnd := time.Now().Add(30 * 24 * time.Hour).UTC().Truncate(time.Second)

	ev := models.SubscriptionEvent{
		EventID: "evt_1", EventType: models.EventInvoicePaymentSucceeded, UserUID: uid,
		SubscriptionID: "sub_1", Outcome: models.OutcomeApplied, Payload: []byte(`{"id":"evt_1"}`),
	}
	applied, err := storage.ApplySubscriptionEvent(ctx, ev, promote(periodEnd))
	require.NoError(t, err)
	assert.True(t, applied)

	u, err := storage.GetUser(ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, models.TierPremium, u.SubscriptionTier)
	assert.Equal(t, models.StatePremiumActive, u.SubscriptionState)
	assert.Equal(t, "sub_1", u.BillingSubscriptionID)
	require.NotNil(t, u.CurrentPeriodEnd)
	assert.True(t, periodEnd.Equal(*u.CurrentPeriodEnd))

	payments, err := storage.ListPaymentTransactions(ctx, uid, models.NewPage(10, 0))
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.Equal(t, int64(999), payments[0].Amount)
	assert.Equal(t, models.PaymentSucceeded, payments[0].Status)

	exists, err := storage.SubscriptionEventExists(ctx, "evt_1")
	require.NoError(t, err)
	assert.True(t, exists)

	t.Run("duplicate is a no-op", func(t *testing.T) {
		called := false
		applied, err := storage.ApplySubscriptionEvent(ctx, ev, func(u *models.User) *models.PaymentTransaction {
			called = true
			u.SubscriptionTier = models.TierFree
			return nil
		})
		require.NoError(t, err)
		assert.False(t, applied)
		assert.False(t, called)

		u, err := storage.GetUser(ctx, uid)
		require.NoError(t, err)
		assert.Equal(t, models.TierPremium, u.SubscriptionTier)
	})

	t.Run("clearing subscription ref keeps customer", func(t *testing.T) {
		customerID, err := storage.SetBillingCustomer(ctx, uid, "cus_1")
		require.NoError(t, err)
		require.Equal(t, "cus_1", customerID)
		applied, err := storage.ApplySubscriptionEvent(ctx, models.SubscriptionEvent{
			EventID: "evt_2", EventType: models.EventCustomerSubscriptionDeleted, UserUID: uid,
			Outcome: models.OutcomeApplied,
		}, func(u *models.User) *models.PaymentTransaction {
			u.SubscriptionState = models.StateFree
			u.SubscriptionTier = models.TierFree
			u.SubscriptionStatus = "canceled"
			u.BillingSubscriptionID = ""
			return nil
		})
		require.NoError(t, err)
		assert.True(t, applied)

		u, err := storage.GetUser(ctx, uid)
		require.NoError(t, err)
		assert.Equal(t, models.TierFree, u.SubscriptionTier)
		assert.Empty(t, u.BillingSubscriptionID)
		assert.Equal(t, "cus_1", u.BillingCustomerID)
	})
}

func TestStorage_RecordSubscriptionEvent(t *testing.T) {
	storage, _ := setupStorage(t)
	ctx := context.Background()

	ev := models.SubscriptionEvent{
		EventID: "evt_unmatched", EventType: models.EventCustomerSubscriptionUpdated,
		SubscriptionID: "sub_nobody", Outcome: models.OutcomeUnmatched,
	}
	inserted, err := storage.RecordSubscriptionEvent(ctx, ev)
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = storage.RecordSubscriptionEvent(ctx, ev)
	require.NoError(t, err)
	assert.False(t, inserted)
}

func TestStorage_ApplySubscriptionEvent_ConcurrentDuplicates(t *testing.T) {
	storage, factory := setupStorage(t)
	ctx := context.Background()
	uid := factory.User(t)
	periodEnd := time.Now().Add(time.Hour)

	ev := models.SubscriptionEvent{
		EventID: "evt_race", EventType: models.EventInvoicePaymentSucceeded, UserUID: uid,
		Outcome: models.OutcomeApplied,
	}

	const deliveries = 6
	var (
		wg      sync.WaitGroup
		applied atomic.Int32
	)
	for range deliveries {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := storage.ApplySubscriptionEvent(ctx, ev, promote(periodEnd))
			if err != nil {
				t.Errorf("apply: %v", err)
				return
			}
			if ok {
				applied.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), applied.Load())

	var events, payments int
	require.NoError(t, storage.DB.QueryRow(`SELECT COUNT(*) FROM subscription_events WHERE event_id = 'evt_race'`).Scan(&events))
	require.NoError(t, storage.DB.QueryRow(`SELECT COUNT(*) FROM payment_transactions WHERE user_uid = $1`, uid).Scan(&payments))
	assert.Equal(t, 1, events)
	assert.Equal(t, 1, payments)
}
