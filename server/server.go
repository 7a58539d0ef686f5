package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/inconshreveable/log15"
	"github.com/streadway/amqp"

	"seqlib/config"
	"seqlib/lists"
	"seqlib/table"
	"seqlib/types"
)

//go:generate mockgen -source=server.go -destination=mocks/mock_channel.go -package=mocks

// Channel is the subset of *amqp.Channel the server and client use.
type Channel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// Snapshotter stores a copy of a sequence and returns where it went.
type Snapshotter interface {
	Export(ctx context.Context, name string, seq lists.Sequence[string]) (string, error)
}

// Server applies operations from one AMQP queue to a registry of named
// sequences. Sequences are not safe for concurrent use, so every access goes
// through dataMux.
type Server struct {
	data      *types.OrderedMap[lists.Sequence[string]]
	channel   Channel
	queueName string
	kind      lists.Kind
	snapshots Snapshotter
	results   *table.Table[string, types.Result]
	waitTime  time.Duration
	ctx       context.Context
	Cancel    context.CancelFunc
	done      chan struct{}
	logger    log15.Logger
	logFile   log15.Logger
	dataMux   sync.RWMutex
	logsMux   sync.Mutex
}

func NewServer(conf *config.Config, ch Channel, snapshots Snapshotter) (*Server, error) {
	logger := log15.New("service", "server")
	lvl, err := log15.LvlFromString(conf.LogLevel)
	if err != nil {
		lvl = log15.LvlInfo
	}
	logger.SetHandler(log15.LvlFilterHandler(lvl, log15.StdoutHandler))

	logFile := log15.New()
	if conf.LogFilePath != "" {
		logfileHandler, err := log15.FileHandler(conf.LogFilePath, log15.LogfmtFormat())
		if err != nil {
			return nil, err
		}
		logFile.SetHandler(logfileHandler)
	} else {
		logFile.SetHandler(log15.DiscardHandler())
	}

	return newServer(conf, ch, snapshots, logger, logFile), nil
}

func newServer(conf *config.Config, ch Channel, snapshots Snapshotter, logger, logFile log15.Logger) *Server {
	results, err := table.New[string, types.Result](conf.TableCapacity)
	if err != nil {
		results = table.Default[string, types.Result]()
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &Server{
		data:      types.NewOrderedMap[lists.Sequence[string]](),
		channel:   ch,
		queueName: conf.QueueName,
		kind:      conf.Kind(),
		snapshots: snapshots,
		results:   results,
		waitTime:  time.Duration(conf.ServerWaitTimeSeconds) * time.Second,
		ctx:       ctx,
		Cancel:    cancel,
		done:      make(chan struct{}),
		logger:    logger,
		logFile:   logFile,
	}
}

// StartServer consumes the operation queue until the server is closed or the
// delivery channel is closed by the broker. Deliveries are applied in order.
func (s *Server) StartServer() error {
	defer close(s.done)

	_, err := s.channel.QueueDeclare(s.queueName, true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("declare queue %s: %w", s.queueName, err)
	}
	messages, err := s.channel.Consume(s.queueName, "", true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume queue %s: %w", s.queueName, err)
	}

	s.logger.Debug("Listening queue!", "queue", s.queueName)
	for {
		select {
		case <-s.ctx.Done():
			return nil
		case message, ok := <-messages:
			if !ok {
				s.logger.Warn("Delivery channel closed", "queue", s.queueName)
				return nil
			}
			s.handleDelivery(message)
		}
	}
}

// Close stops the consume loop and waits for it up to the configured wait time.
func (s *Server) Close() error {
	s.Cancel()
	select {
	case <-s.done:
		return nil
	case <-time.After(s.waitTime):
		return fmt.Errorf("server did not stop within %s", s.waitTime)
	}
}

func (s *Server) handleDelivery(message amqp.Delivery) {
	var result types.Result

	op := &types.Operation{}
	if err := json.Unmarshal(message.Body, op); err != nil {
		s.logger.Error("Cannot unmarshal message", "error", err.Error())
		result = failure(&types.Operation{ID: message.MessageId}, types.ErrorKindBadRequest, err)
	} else {
		if op.ID == "" {
			op.ID = message.MessageId
		}
		result = s.apply(op, message.Redelivered)
	}

	s.logsMux.Lock()
	s.logFile.Info("Operation done", "id", result.ID, "list", result.List, "action", result.Action,
		"ok", result.Ok, "length", result.Length, "error", result.Error)
	s.logsMux.Unlock()

	if message.ReplyTo == "" {
		return
	}
	body, err := json.Marshal(result)
	if err != nil {
		s.logger.Error("Cannot marshal result", "error", err.Error())
		return
	}
	err = s.channel.Publish("", message.ReplyTo, false, false, amqp.Publishing{
		ContentType:   "application/json",
		CorrelationId: message.CorrelationId,
		MessageId:     result.ID,
		Body:          body,
	})
	if err != nil {
		s.logger.Error("Error while sending reply", "reply_to", message.ReplyTo, "error", err)
	}
}

// apply runs op unless it is a redelivery of an operation whose result is
// still cached. The result table is lossy: a colliding ID evicts the older
// entry, and such an operation is applied again. Only the consume loop
// touches it.
func (s *Server) apply(op *types.Operation, redelivered bool) types.Result {
	if redelivered && op.ID != "" {
		if cached, ok := s.results.Get(op.ID); ok {
			s.logger.Debug("Replaying cached result", "id", op.ID)
			return cached
		}
	}

	result := s.processItem(op)
	if result.ID != "" {
		s.results.Insert(result.ID, result)
	}
	return result
}

func (s *Server) processItem(op *types.Operation) types.Result {
	switch op.Action {
	case types.InsertA:
		s.dataMux.Lock()
		defer s.dataMux.Unlock()
		seq, err := s.listOrCreate(op)
		if err != nil {
			return failure(op, types.ErrorKindBadRequest, err)
		}
		seq.Insert(op.Value)
		return success(op, seq)
	case types.RemoveA:
		return s.mutate(op, func(seq lists.Sequence[string]) (types.Result, error) {
			_, err := seq.Remove(op.Value)
			return success(op, seq), err
		})
	case types.UpdateA:
		return s.mutate(op, func(seq lists.Sequence[string]) (types.Result, error) {
			_, err := seq.Update(op.Value, op.NewValue)
			return success(op, seq), err
		})
	case types.PopA:
		return s.mutate(op, func(seq lists.Sequence[string]) (types.Result, error) {
			v, err := seq.Pop()
			res := success(op, seq)
			res.Value = v
			return res, err
		})
	case types.ClearA:
		return s.mutate(op, func(seq lists.Sequence[string]) (types.Result, error) {
			seq.Clear()
			return success(op, seq), nil
		})
	case types.SearchA:
		return s.query(op, func(seq lists.Sequence[string]) (types.Result, error) {
			_, err := seq.Search(op.Value)
			return success(op, seq), err
		})
	case types.GetA:
		return s.query(op, func(seq lists.Sequence[string]) (types.Result, error) {
			v, err := seq.Get(op.Index)
			res := success(op, seq)
			res.Value = v
			return res, err
		})
	case types.LenA:
		return s.query(op, func(seq lists.Sequence[string]) (types.Result, error) {
			return success(op, seq), nil
		})
	case types.PrintA:
		return s.query(op, func(seq lists.Sequence[string]) (types.Result, error) {
			res := success(op, seq)
			res.Value = seq.String()
			res.Values = seq.Values()
			return res, nil
		})
	case types.DropA:
		s.dataMux.Lock()
		defer s.dataMux.Unlock()
		if !s.data.Delete(op.List) {
			return failure(op, types.ErrorKindNoList, fmt.Errorf("list %q does not exist", op.List))
		}
		return types.Result{ID: op.ID, List: op.List, Action: op.Action, Ok: true}
	case types.ListsA:
		s.dataMux.RLock()
		defer s.dataMux.RUnlock()
		return types.Result{ID: op.ID, Action: op.Action, Ok: true, Values: s.data.Keys(), Length: s.data.Len()}
	case types.SnapshotA:
		return s.snapshot(op)
	default:
		return failure(op, types.ErrorKindBadRequest, fmt.Errorf("unknown action %q", op.Action))
	}
}

func (s *Server) mutate(op *types.Operation, fn func(lists.Sequence[string]) (types.Result, error)) types.Result {
	s.dataMux.Lock()
	defer s.dataMux.Unlock()
	return s.withList(op, fn)
}

func (s *Server) query(op *types.Operation, fn func(lists.Sequence[string]) (types.Result, error)) types.Result {
	s.dataMux.RLock()
	defer s.dataMux.RUnlock()
	return s.withList(op, fn)
}

func (s *Server) withList(op *types.Operation, fn func(lists.Sequence[string]) (types.Result, error)) types.Result {
	seq, ok := s.data.Get(op.List)
	if !ok {
		return failure(op, types.ErrorKindNoList, fmt.Errorf("list %q does not exist", op.List))
	}
	res, err := fn(seq)
	if err != nil {
		res = failure(op, errorKind(err), err)
		res.Length = seq.Len()
	}
	return res
}

func (s *Server) listOrCreate(op *types.Operation) (lists.Sequence[string], error) {
	if seq, ok := s.data.Get(op.List); ok {
		return seq, nil
	}
	if op.List == "" {
		return nil, errors.New("list name is required")
	}

	kind := s.kind
	if op.Kind != "" {
		var err error
		if kind, err = lists.ParseKind(op.Kind); err != nil {
			return nil, err
		}
	}
	seq, err := lists.New[string](kind)
	if err != nil {
		return nil, err
	}
	s.data.Set(op.List, seq)
	s.logger.Debug("List created", "list", op.List, "kind", kind)
	return seq, nil
}

// snapshot copies the list under the read lock and uploads the copy without
// holding it.
func (s *Server) snapshot(op *types.Operation) types.Result {
	if s.snapshots == nil {
		return failure(op, types.ErrorKindBadRequest, errors.New("snapshots are not configured"))
	}

	s.dataMux.RLock()
	seq, ok := s.data.Get(op.List)
	var snap lists.Sequence[string]
	var err error
	if ok {
		snap, err = lists.FromSlice(seq.Kind(), seq.Values())
	}
	s.dataMux.RUnlock()

	if !ok {
		return failure(op, types.ErrorKindNoList, fmt.Errorf("list %q does not exist", op.List))
	}
	if err != nil {
		return failure(op, types.ErrorKindInternal, err)
	}

	key, err := s.snapshots.Export(s.ctx, op.List, snap)
	if err != nil {
		return failure(op, types.ErrorKindInternal, err)
	}
	res := success(op, snap)
	res.Value = key
	return res
}

func success(op *types.Operation, seq lists.Sequence[string]) types.Result {
	return types.Result{ID: op.ID, List: op.List, Action: op.Action, Ok: true, Length: seq.Len()}
}

func failure(op *types.Operation, kind string, err error) types.Result {
	return types.Result{ID: op.ID, List: op.List, Action: op.Action, Error: err.Error(), ErrorKind: kind}
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, lists.ErrEmptyList):
		return types.ErrorKindEmptyList
	case errors.Is(err, lists.ErrValueNotFound):
		return types.ErrorKindValueNotFound
	case errors.Is(err, lists.ErrIndexOutOfBounds):
		return types.ErrorKindIndex
	default:
		return types.ErrorKindInternal
	}
}
