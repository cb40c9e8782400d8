package clicks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sundayezeilo/linkmetrics/internal/errx"
	"github.com/sundayezeilo/linkmetrics/internal/links"
)

type fakeAcker struct {
	acks, naks, terms int
}

func (f *fakeAcker) Ack(...nats.AckOpt) error  { f.acks++; return nil }
func (f *fakeAcker) Nak(...nats.AckOpt) error  { f.naks++; return nil }
func (f *fakeAcker) Term(...nats.AckOpt) error { f.terms++; return nil }

func TestConsumer_Handle(t *testing.T) {
	valid, err := json.Marshal(ClickInput{ID: uuid.New(), LinkID: uuid.New(), IPAddress: "203.0.113.1"})
	require.NoError(t, err)

	tests := []struct {
		name      string
		data      []byte
		recordErr error
		wantAck   int
		wantNak   int
		wantTerm  int
	}{
		{name: "recorded", data: valid, wantAck: 1},
		{
			name:      "link unavailable",
			data:      valid,
			recordErr: errx.E("clicks.Recorder.Record", errx.NotFound, fmt.Errorf("%w: x", links.ErrLinkUnavailable)),
			wantAck:   1,
		},
		{
			name:      "invalid click",
			data:      valid,
			recordErr: errx.E("clicks.Recorder.Record", errx.Invalid, errors.New("ip address is required")),
			wantAck:   1,
		},
		{
			name:      "transient failure",
			data:      valid,
			recordErr: errx.E("clicks.store.Insert", errx.Unavailable, errors.New("pool closed")),
			wantNak:   1,
		},
		{name: "undecodable", data: []byte("{not json"), wantTerm: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewConsumer(nil, recorderFunc(func(context.Context, ClickInput) (ClickResult, error) {
				return ClickResult{}, tt.recordErr
			}), ConsumerConfig{Logger: discardLogger()})

			msg := &fakeAcker{}
			c.handle(tt.data, msg)

			assert.Equal(t, tt.wantAck, msg.acks, "acks")
			assert.Equal(t, tt.wantNak, msg.naks, "naks")
			assert.Equal(t, tt.wantTerm, msg.terms, "terms")
		})
	}
}

type fakePublisher struct {
	subject string
	data    []byte
	opts    int
	err     error
}

func (f *fakePublisher) Publish(subj string, data []byte, opts ...nats.PubOpt) (*nats.PubAck, error) {
	f.subject = subj
	f.data = data
	f.opts = len(opts)
	if f.err != nil {
		return nil, f.err
	}
	return &nats.PubAck{Stream: DefaultStream}, nil
}

func TestNATSDispatcher_Dispatch(t *testing.T) {
	pub := &fakePublisher{}
	d := NewNATSDispatcher(pub, NATSDispatcherConfig{Now: func() time.Time { return fixedNow }})

	link := uuid.New()
	require.NoError(t, d.Dispatch(context.Background(), ClickInput{LinkID: link, IPAddress: "203.0.113.1"}))

	assert.Equal(t, DefaultSubject, pub.subject)
	assert.Equal(t, 2, pub.opts)

	var sent ClickInput
	require.NoError(t, json.Unmarshal(pub.data, &sent))
	assert.Equal(t, link, sent.LinkID)
	assert.NotEqual(t, uuid.Nil, sent.ID)
	assert.True(t, sent.ClickedAt.Equal(fixedNow))
	assert.NoError(t, d.Close(context.Background()))
}

func TestNATSDispatcher_PublishError(t *testing.T) {
	boom := errors.New("no responders")
	d := NewNATSDispatcher(&fakePublisher{err: boom}, NATSDispatcherConfig{Subject: "clicks.test"})

	err := d.Dispatch(context.Background(), ClickInput{LinkID: uuid.New()})
	assert.ErrorIs(t, err, boom)
}

type fakeStreams struct {
	infoErr error
	added   *nats.StreamConfig
	updated *nats.StreamConfig
}

func (f *fakeStreams) StreamInfo(string, ...nats.JSOpt) (*nats.StreamInfo, error) {
	if f.infoErr != nil {
		return nil, f.infoErr
	}
	return &nats.StreamInfo{}, nil
}

func (f *fakeStreams) AddStream(cfg *nats.StreamConfig, _ ...nats.JSOpt) (*nats.StreamInfo, error) {
	f.added = cfg
	return &nats.StreamInfo{Config: *cfg}, nil
}

func (f *fakeStreams) UpdateStream(cfg *nats.StreamConfig, _ ...nats.JSOpt) (*nats.StreamInfo, error) {
	f.updated = cfg
	return &nats.StreamInfo{Config: *cfg}, nil
}

func TestEnsureStream(t *testing.T) {
	t.Run("creates missing stream", func(t *testing.T) {
		js := &fakeStreams{infoErr: nats.ErrStreamNotFound}
		require.NoError(t, EnsureStream(js, DefaultStream, DefaultSubject))
		require.NotNil(t, js.added)
		assert.Nil(t, js.updated)
		assert.Equal(t, []string{DefaultSubject}, js.added.Subjects)
		assert.Equal(t, dedupWindow, js.added.Duplicates)
	})

	t.Run("updates existing stream", func(t *testing.T) {
		js := &fakeStreams{}
		require.NoError(t, EnsureStream(js, DefaultStream, DefaultSubject))
		assert.Nil(t, js.added)
		require.NotNil(t, js.updated)
	})

	t.Run("lookup failure", func(t *testing.T) {
		js := &fakeStreams{infoErr: nats.ErrTimeout}
		err := EnsureStream(js, DefaultStream, DefaultSubject)
		assert.ErrorIs(t, err, nats.ErrTimeout)
	})
}
