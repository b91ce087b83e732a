// Package mocks provides test doubles for the huggingface client.
package mocks

import (
	"context"

	huggingface "github.com/sells-group/member-qa/pkg/huggingface"
	mock "github.com/stretchr/testify/mock"
)

// MockClient is a mock type for the Client interface.
type MockClient struct {
	mock.Mock
}

// Answer provides a mock function with given fields: ctx, question, qaContext
func (_m *MockClient) Answer(ctx context.Context, question string, qaContext string) (*huggingface.Answer, error) {
	ret := _m.Called(ctx, question, qaContext)

	if len(ret) == 0 {
		panic("no return value specified for Answer")
	}

	var r0 *huggingface.Answer
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string, string) (*huggingface.Answer, error)); ok {
		return rf(ctx, question, qaContext)
	}
	if rf, ok := ret.Get(0).(func(context.Context, string, string) *huggingface.Answer); ok {
		r0 = rf(ctx, question, qaContext)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*huggingface.Answer)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, string, string) error); ok {
		r1 = rf(ctx, question, qaContext)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// NewMockClient creates a new instance of MockClient. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
// The first argument is typically a *testing.T value.
func NewMockClient(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockClient {
	m := &MockClient{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
