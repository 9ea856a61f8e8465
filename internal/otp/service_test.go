package otp

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hamzaiqbal/crmconnect/internal/errs"
	"github.com/hamzaiqbal/crmconnect/internal/models"
	"github.com/hamzaiqbal/crmconnect/internal/store/memory"
)

type captureSender struct {
	mu   sync.Mutex
	sent []string
}

func (s *captureSender) Send(ctx context.Context, user *models.User, channel models.CodeChannel, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, code)
	return nil
}

func newTestService(t *testing.T, opts Options) (*Service, *memory.Store, uuid.UUID, *captureSender) {
	t.Helper()
	st := memory.New()
	u := &models.User{
		Email:        "admin@acme.test",
		Phone:        "+15550100",
		PasswordHash: "x",
		Role:         models.RoleTenantAdmin,
	}
	require.NoError(t, st.CreateUser(context.Background(), u))
	sender := &captureSender{}
	svc := NewService(st, sender, opts, nil)
	return svc, st, u.ID, sender
}

func TestIssueAndVerify(t *testing.T) {
	svc, st, userID, sender := newTestService(t, Options{})
	ctx := context.Background()

	code, err := svc.Issue(ctx, userID, models.CodeChannelEmail)
	require.NoError(t, err)
	require.Len(t, code, 6)
	require.Equal(t, []string{code}, sender.sent)

	require.NoError(t, svc.Verify(ctx, userID, models.CodeChannelEmail, code))

	u, err := st.GetUser(ctx, userID)
	require.NoError(t, err)
	assert.True(t, u.EmailVerified)
	assert.False(t, u.PhoneVerified)

	// A consumed code cannot be replayed.
	err = svc.Verify(ctx, userID, models.CodeChannelEmail, code)
	assert.ErrorIs(t, err, errs.ErrAlreadyUsed)
}

func TestVerifyWrongCode(t *testing.T) {
	svc, st, userID, _ := newTestService(t, Options{})
	ctx := context.Background()

	code, err := svc.Issue(ctx, userID, models.CodeChannelPhone)
	require.NoError(t, err)

	wrong := "000000"
	if wrong == code {
		wrong = "000001"
	}
	err = svc.Verify(ctx, userID, models.CodeChannelPhone, wrong)
	assert.ErrorIs(t, err, errs.ErrCodeMismatch)

	u, err := st.GetUser(ctx, userID)
	require.NoError(t, err)
	assert.False(t, u.PhoneVerified)

	// The live code still works after a failed attempt.
	require.NoError(t, svc.Verify(ctx, userID, models.CodeChannelPhone, code))
}

func TestVerifyExpired(t *testing.T) {
	svc, _, userID, _ := newTestService(t, Options{TTL: 15 * time.Minute})
	ctx := context.Background()

	code, err := svc.Issue(ctx, userID, models.CodeChannelEmail)
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Now().Add(20 * time.Minute) }

	// Expiry wins over the hash check, even for a wrong submission.
	assert.ErrorIs(t, svc.Verify(ctx, userID, models.CodeChannelEmail, code), errs.ErrExpired)
	assert.ErrorIs(t, svc.Verify(ctx, userID, models.CodeChannelEmail, "999999"), errs.ErrExpired)
}

func TestReissueInvalidatesPrior(t *testing.T) {
	svc, _, userID, _ := newTestService(t, Options{})
	ctx := context.Background()

	first, err := svc.Issue(ctx, userID, models.CodeChannelEmail)
	require.NoError(t, err)
	second, err := svc.Issue(ctx, userID, models.CodeChannelEmail)
	require.NoError(t, err)

	// Only the latest code is live.
	if first != second {
		err = svc.Verify(ctx, userID, models.CodeChannelEmail, first)
		assert.Error(t, err)
	}
	require.NoError(t, svc.Verify(ctx, userID, models.CodeChannelEmail, second))
}

func TestIssueCooldown(t *testing.T) {
	svc, _, userID, _ := newTestService(t, Options{Cooldown: time.Minute})
	ctx := context.Background()

	_, err := svc.Issue(ctx, userID, models.CodeChannelEmail)
	require.NoError(t, err)

	_, err = svc.Issue(ctx, userID, models.CodeChannelEmail)
	assert.ErrorIs(t, err, errs.ErrTooSoon)

	// Channels cool down independently.
	_, err = svc.Issue(ctx, userID, models.CodeChannelPhone)
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, err = svc.Issue(ctx, userID, models.CodeChannelEmail)
	require.NoError(t, err)
}

func TestConcurrentVerifySingleWinner(t *testing.T) {
	svc, st, userID, _ := newTestService(t, Options{})
	ctx := context.Background()

	code, err := svc.Issue(ctx, userID, models.CodeChannelEmail)
	require.NoError(t, err)

	const n = 16
	results := make(chan error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- svc.Verify(ctx, userID, models.CodeChannelEmail, code)
		}()
	}
	wg.Wait()
	close(results)

	wins := 0
	for err := range results {
		if err == nil {
			wins++
		} else {
			assert.ErrorIs(t, err, errs.ErrAlreadyUsed)
		}
	}
	assert.Equal(t, 1, wins)

	u, err := st.GetUser(ctx, userID)
	require.NoError(t, err)
	assert.True(t, u.EmailVerified)
}
