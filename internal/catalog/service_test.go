package catalog

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/jonathan/entity-catalog/internal/types"
	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) DomainPairs(ctx context.Context) ([]types.DomainPair, error) {
	args := m.Called(ctx)
	pairs, _ := args.Get(0).([]types.DomainPair)
	return pairs, args.Error(1)
}

func (m *mockStore) CatalogRecords(ctx context.Context, domain, subDomain string) ([]types.PathRecord, error) {
	args := m.Called(ctx, domain, subDomain)
	records, _ := args.Get(0).([]types.PathRecord)
	return records, args.Error(1)
}

func newTestService(store Store, clock clockwork.Clock) *Service {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewService(store, Options{TTL: 300 * time.Second, Clock: clock, Logger: logger})
}

func wirelessRecords() []types.PathRecord {
	sub := types.StringPtr("无线通信")
	return []types.PathRecord{
		{Path: "通信/无线通信/5G", Domain: "通信", SubDomain: sub, EntityID: types.Int64Ptr(8)},
		{Path: "通信/无线通信/WiFi", Domain: "通信", SubDomain: sub, EntityID: types.Int64Ptr(9)},
		{Path: "通信/无线通信/5G/毫米波", Domain: "通信", SubDomain: sub, EntityID: types.Int64Ptr(10)},
		{Path: "通信/无线通信/5G/大规模MIMO", Domain: "通信", SubDomain: sub, EntityID: types.Int64Ptr(11)},
	}
}

func TestGetDomainTree_CachesWithinTTL(t *testing.T) {
	store := &mockStore{}
	store.On("DomainPairs", mock.Anything).Return([]types.DomainPair{
		{Domain: "通信", SubDomain: types.StringPtr("无线通信")},
		{Domain: "数据科学"},
	}, nil).Once()

	clock := clockwork.NewFakeClock()
	svc := newTestService(store, clock)
	ctx := context.Background()

	first := svc.GetDomainTree(ctx, false)
	clock.Advance(time.Minute)
	second := svc.GetDomainTree(ctx, false)

	require.Len(t, first, 2)
	assert.Equal(t, first, second)
	assert.Empty(t, first[1].Children)
	assert.True(t, svc.DomainTreeValid())
	store.AssertNumberOfCalls(t, "DomainPairs", 1)
}

func TestGetDomainTree_ForceRefresh(t *testing.T) {
	store := &mockStore{}
	store.On("DomainPairs", mock.Anything).Return([]types.DomainPair{{Domain: "计算机"}}, nil)

	svc := newTestService(store, clockwork.NewFakeClock())
	ctx := context.Background()

	svc.GetDomainTree(ctx, false)
	svc.GetDomainTree(ctx, true)
	svc.GetDomainTree(ctx, true)

	store.AssertNumberOfCalls(t, "DomainPairs", 3)
}

func TestGetDomainTree_FetchFailureServesStale(t *testing.T) {
	store := &mockStore{}
	store.On("DomainPairs", mock.Anything).Return([]types.DomainPair{{Domain: "计算机"}}, nil).Once()
	store.On("DomainPairs", mock.Anything).Return(nil, errors.New("db down")).Once()

	clock := clockwork.NewFakeClock()
	svc := newTestService(store, clock)
	ctx := context.Background()

	good := svc.GetDomainTree(ctx, false)
	clock.Advance(301 * time.Second)
	stale := svc.GetDomainTree(ctx, false)

	assert.Equal(t, good, stale)
	assert.False(t, svc.DomainTreeValid())
}

func TestGetDomainTree_FetchFailureWithoutCacheIsEmpty(t *testing.T) {
	store := &mockStore{}
	store.On("DomainPairs", mock.Anything).Return(nil, errors.New("db down"))

	svc := newTestService(store, clockwork.NewFakeClock())
	nodes := svc.GetDomainTree(context.Background(), false)

	assert.NotNil(t, nodes)
	assert.Empty(t, nodes)
}

func TestGetEntityTree_BuildsScopedTree(t *testing.T) {
	store := &mockStore{}
	store.On("CatalogRecords", mock.Anything, "通信", "无线通信").Return(wirelessRecords(), nil).Once()

	svc := newTestService(store, clockwork.NewFakeClock())
	ctx := context.Background()

	nodes, err := svc.GetEntityTree(ctx, "通信", "无线通信", false)
	require.NoError(t, err)
	require.Len(t, nodes, 2)
	assert.Equal(t, "5G", nodes[0].Title)
	assert.Len(t, nodes[0].Children, 2)
	assert.Equal(t, "WiFi", nodes[1].Title)

	again, err := svc.GetEntityTree(ctx, "通信", "无线通信", false)
	require.NoError(t, err)
	assert.Equal(t, nodes, again)
	assert.True(t, svc.EntityTreeValid("通信", "无线通信"))
	store.AssertExpectations(t)
}

func TestGetEntityTree_ScopesCachedIndependently(t *testing.T) {
	store := &mockStore{}
	store.On("CatalogRecords", mock.Anything, "通信", "无线通信").Return(wirelessRecords(), nil)
	store.On("CatalogRecords", mock.Anything, "计算机", "软件").Return([]types.PathRecord{
		{Path: "计算机/软件/操作系统", Domain: "计算机", EntityID: types.Int64Ptr(12)},
	}, nil)

	clock := clockwork.NewFakeClock()
	svc := newTestService(store, clock)
	ctx := context.Background()

	_, err := svc.GetEntityTree(ctx, "通信", "无线通信", false)
	require.NoError(t, err)
	clock.Advance(200 * time.Second)
	_, err = svc.GetEntityTree(ctx, "计算机", "软件", false)
	require.NoError(t, err)
	clock.Advance(200 * time.Second)

	assert.False(t, svc.EntityTreeValid("通信", "无线通信"))
	assert.True(t, svc.EntityTreeValid("计算机", "软件"))
}

func TestGetEntityTree_MissingParameters(t *testing.T) {
	store := &mockStore{}
	svc := newTestService(store, clockwork.NewFakeClock())

	tests := []struct {
		name      string
		domain    string
		subDomain string
		want      []string
	}{
		{"both missing", "", "", []string{"domain", "sub_domain"}},
		{"domain blank", "  ", "无线通信", []string{"domain"}},
		{"sub-domain missing", "通信", "", []string{"sub_domain"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nodes, err := svc.GetEntityTree(context.Background(), tt.domain, tt.subDomain, false)
			assert.Nil(t, nodes)

			var missing *MissingParameterError
			require.ErrorAs(t, err, &missing)
			assert.Equal(t, tt.want, missing.Params)
		})
	}
	store.AssertNotCalled(t, "CatalogRecords", mock.Anything, mock.Anything, mock.Anything)
}

func TestGetEntityTree_FetchFailureIsAbsorbed(t *testing.T) {
	store := &mockStore{}
	store.On("CatalogRecords", mock.Anything, "通信", "无线通信").Return(nil, errors.New("timeout"))

	var hookErr error
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	svc := NewService(store, Options{
		Clock:          clockwork.NewFakeClock(),
		Logger:         logger,
		OnRefreshError: func(_ string, err error) { hookErr = err },
	})

	nodes, err := svc.GetEntityTree(context.Background(), "通信", "无线通信", true)
	require.NoError(t, err)
	assert.NotNil(t, nodes)
	assert.Empty(t, nodes)

	var fetchErr *FetchError
	require.ErrorAs(t, hookErr, &fetchErr)
	assert.Equal(t, "通信:无线通信", fetchErr.Scope)
	assert.Contains(t, fetchErr.Error(), "timeout")
}

func TestMissingParameterError_Message(t *testing.T) {
	err := &MissingParameterError{Params: []string{"domain", "sub_domain"}}
	assert.Equal(t, "missing required parameters: domain and sub_domain", err.Error())
}
