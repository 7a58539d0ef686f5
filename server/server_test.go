package server

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/inconshreveable/log15"
	"github.com/streadway/amqp"
	"go.uber.org/mock/gomock"

	"seqlib/config"
	"seqlib/lists"
	"seqlib/server/mocks"
	"seqlib/types"
)

func testConfig() *config.Config {
	return &config.Config{
		QueueName:             "ops",
		DefaultKind:           "double",
		TableCapacity:         16,
		ServerWaitTimeSeconds: 1,
	}
}

func discard() log15.Logger {
	l := log15.New()
	l.SetHandler(log15.DiscardHandler())
	return l
}

func newTestServer(ch Channel, snapshots Snapshotter) *Server {
	return newServer(testConfig(), ch, snapshots, discard(), discard())
}

func TestProcessItem_Scenario(t *testing.T) {
	s := newTestServer(nil, nil)

	for _, v := range []string{"1", "2", "3", "4", "5"} {
		res := s.processItem(&types.Operation{List: "l", Action: types.InsertA, Value: v})
		if !res.Ok {
			t.Fatalf("Insert(%s) = %+v", v, res)
		}
	}

	tests := []struct {
		name       string
		op         types.Operation
		wantOk     bool
		wantValue  string
		wantLength int
		wantKind   string
	}{
		{"pop", types.Operation{Action: types.PopA}, true, "5", 4, ""},
		{"remove", types.Operation{Action: types.RemoveA, Value: "3"}, true, "", 3, ""},
		{"search removed", types.Operation{Action: types.SearchA, Value: "3"}, false, "", 3, types.ErrorKindValueNotFound},
		{"update", types.Operation{Action: types.UpdateA, Value: "4", NewValue: "9"}, true, "", 3, ""},
		{"get", types.Operation{Action: types.GetA, Index: 2}, true, "9", 3, ""},
		{"get out of range", types.Operation{Action: types.GetA, Index: 3}, false, "", 3, types.ErrorKindIndex},
		{"print", types.Operation{Action: types.PrintA}, true, "[0: 1, 1: 2, 2: 9]", 3, ""},
		{"clear", types.Operation{Action: types.ClearA}, true, "", 0, ""},
		{"pop empty", types.Operation{Action: types.PopA}, false, "", 0, types.ErrorKindEmptyList},
		{"get empty", types.Operation{Action: types.GetA}, false, "", 0, types.ErrorKindEmptyList},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			op := tt.op
			op.List = "l"
			res := s.processItem(&op)
			if res.Ok != tt.wantOk || res.Value != tt.wantValue || res.Length != tt.wantLength || res.ErrorKind != tt.wantKind {
				t.Errorf("processItem(%s) = %+v", op.Action, res)
			}
		})
	}
}

func TestProcessItem_Registry(t *testing.T) {
	s := newTestServer(nil, nil)

	s.processItem(&types.Operation{List: "b", Action: types.InsertA, Value: "x", Kind: "singly"})
	s.processItem(&types.Operation{List: "a", Action: types.InsertA, Value: "y"})

	res := s.processItem(&types.Operation{Action: types.ListsA})
	if !slices.Equal(res.Values, []string{"b", "a"}) || res.Length != 2 {
		t.Errorf("Lists = %+v", res)
	}

	seq, _ := s.data.Get("b")
	if seq.Kind() != lists.KindSingly {
		t.Errorf("list b kind = %v, want singly", seq.Kind())
	}
	res = s.processItem(&types.Operation{List: "b", Action: types.PrintA})
	if res.Value != "x -> None" {
		t.Errorf("Print(b) = %q", res.Value)
	}

	if res := s.processItem(&types.Operation{List: "b", Action: types.DropA}); !res.Ok {
		t.Errorf("Drop(b) = %+v", res)
	}
	if res := s.processItem(&types.Operation{List: "b", Action: types.LenA}); res.ErrorKind != types.ErrorKindNoList {
		t.Errorf("Len(b) after drop = %+v", res)
	}
	if res := s.processItem(&types.Operation{List: "b", Action: types.DropA}); res.ErrorKind != types.ErrorKindNoList {
		t.Errorf("second Drop(b) = %+v", res)
	}
}

func TestProcessItem_BadRequests(t *testing.T) {
	s := newTestServer(nil, nil)

	tests := []struct {
		name string
		op   types.Operation
		want string
	}{
		{"unknown action", types.Operation{List: "l", Action: "Sort"}, types.ErrorKindBadRequest},
		{"insert without name", types.Operation{Action: types.InsertA, Value: "v"}, types.ErrorKindBadRequest},
		{"insert unknown kind", types.Operation{List: "l", Action: types.InsertA, Kind: "ring"}, types.ErrorKindBadRequest},
		{"snapshot disabled", types.Operation{List: "l", Action: types.SnapshotA}, types.ErrorKindBadRequest},
		{"remove missing list", types.Operation{List: "nope", Action: types.RemoveA}, types.ErrorKindNoList},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := s.processItem(&tt.op)
			if res.Ok || res.ErrorKind != tt.want || res.Error == "" {
				t.Errorf("processItem = %+v, want error kind %s", res, tt.want)
			}
		})
	}
	if s.data.Len() != 0 {
		t.Errorf("failed inserts created %d lists", s.data.Len())
	}
}

func TestProcessItem_Snapshot(t *testing.T) {
	ctrl := gomock.NewController(t)
	snapshots := mocks.NewMockSnapshotter(ctrl)
	s := newTestServer(nil, snapshots)

	s.processItem(&types.Operation{List: "l", Action: types.InsertA, Value: "a"})
	s.processItem(&types.Operation{List: "l", Action: types.InsertA, Value: "b"})

	snapshots.EXPECT().
		Export(gomock.Any(), "l", gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, seq lists.Sequence[string]) (string, error) {
			if !slices.Equal(seq.Values(), []string{"a", "b"}) {
				t.Errorf("snapshot values = %v", seq.Values())
			}
			// The exported copy must not alias the live list.
			seq.Pop()
			return "snapshots/l/1.json", nil
		})

	res := s.processItem(&types.Operation{List: "l", Action: types.SnapshotA})
	if !res.Ok || res.Value != "snapshots/l/1.json" {
		t.Errorf("Snapshot = %+v", res)
	}
	if live, _ := s.data.Get("l"); live.Len() != 2 {
		t.Errorf("live list length = %d, want 2", live.Len())
	}

	snapshots.EXPECT().Export(gomock.Any(), "l", gomock.Any()).Return("", errors.New("boom"))
	if res := s.processItem(&types.Operation{List: "l", Action: types.SnapshotA}); res.Ok || res.ErrorKind != types.ErrorKindInternal {
		t.Errorf("Snapshot with failing store = %+v", res)
	}
}

func TestStartServer_RepliesAndStops(t *testing.T) {
	ctrl := gomock.NewController(t)
	ch := mocks.NewMockChannel(ctrl)
	s := newTestServer(ch, nil)

	deliveries := make(chan amqp.Delivery, 2)
	replies := make(chan amqp.Publishing, 1)

	ch.EXPECT().QueueDeclare("ops", true, false, false, false, gomock.Nil()).Return(amqp.Queue{Name: "ops"}, nil)
	ch.EXPECT().Consume("ops", "", true, false, false, false, gomock.Nil()).Return((<-chan amqp.Delivery)(deliveries), nil)
	ch.EXPECT().Publish("", "replies", false, false, gomock.Any()).
		DoAndReturn(func(_, _ string, _, _ bool, msg amqp.Publishing) error {
			replies <- msg
			return nil
		})

	errCh := make(chan error, 1)
	go func() { errCh <- s.StartServer() }()

	// No ReplyTo: applied but not answered.
	deliveries <- amqp.Delivery{Body: []byte(`{"list":"l","action":"Insert","value":"a"}`)}
	deliveries <- amqp.Delivery{
		MessageId:     "m-1",
		CorrelationId: "c-1",
		ReplyTo:       "replies",
		Body:          []byte(`{"list":"l","action":"Get","index":0}`),
	}

	select {
	case msg := <-replies:
		if msg.CorrelationId != "c-1" {
			t.Errorf("CorrelationId = %q", msg.CorrelationId)
		}
		var res types.Result
		if err := json.Unmarshal(msg.Body, &res); err != nil {
			t.Fatal(err)
		}
		if !res.Ok || res.Value != "a" || res.ID != "m-1" {
			t.Errorf("reply = %+v", res)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no reply published")
	}

	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := <-errCh; err != nil {
		t.Errorf("StartServer: %v", err)
	}
}

func TestStartServer_ConsumeError(t *testing.T) {
	ctrl := gomock.NewController(t)
	ch := mocks.NewMockChannel(ctrl)
	s := newTestServer(ch, nil)

	ch.EXPECT().QueueDeclare(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(amqp.Queue{}, nil)
	ch.EXPECT().Consume(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, errors.New("channel closed"))

	if err := s.StartServer(); err == nil {
		t.Error("expected consume error")
	}
}

func TestHandleDelivery_BadJSON(t *testing.T) {
	ctrl := gomock.NewController(t)
	ch := mocks.NewMockChannel(ctrl)
	s := newTestServer(ch, nil)

	ch.EXPECT().Publish("", "r", false, false, gomock.Any()).
		DoAndReturn(func(_, _ string, _, _ bool, msg amqp.Publishing) error {
			var res types.Result
			if err := json.Unmarshal(msg.Body, &res); err != nil {
				t.Fatal(err)
			}
			if res.Ok || res.ErrorKind != types.ErrorKindBadRequest || res.ID != "m-9" {
				t.Errorf("reply = %+v", res)
			}
			return nil
		})

	s.handleDelivery(amqp.Delivery{MessageId: "m-9", ReplyTo: "r", Body: []byte("{")})
}

func TestApply_RedeliveryReplaysCachedResult(t *testing.T) {
	s := newTestServer(nil, nil)
	s.processItem(&types.Operation{List: "l", Action: types.InsertA, Value: "a"})
	s.processItem(&types.Operation{List: "l", Action: types.InsertA, Value: "b"})

	pop := types.Operation{ID: "op-1", List: "l", Action: types.PopA}
	first := s.apply(&pop, false)
	if !first.Ok || first.Value != "b" {
		t.Fatalf("first Pop = %+v", first)
	}

	again := pop
	replayed := s.apply(&again, true)
	if replayed.Value != "b" || replayed.Length != 1 {
		t.Errorf("redelivered Pop = %+v, want cached result", replayed)
	}
	if live, _ := s.data.Get("l"); live.Len() != 1 {
		t.Errorf("redelivery popped again: length = %d", live.Len())
	}

	// A fresh delivery with the same ID is applied.
	fresh := pop
	if res := s.apply(&fresh, false); res.Value != "a" || res.Length != 0 {
		t.Errorf("fresh Pop = %+v", res)
	}
}
