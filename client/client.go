package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/inconshreveable/log15"
	"github.com/streadway/amqp"

	"seqlib/config"
	"seqlib/types"
)

// Publisher is the part of *amqp.Channel a client needs.
type Publisher interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

type Client struct {
	ID        string
	channel   Publisher
	queueName string
}

func NewClient(id string, ch Publisher, queueName string) (*Client, error) {
	_, err := ch.QueueDeclare(
		queueName, // queue name
		true,      // durable
		false,     // auto delete
		false,     // exclusive
		false,     // no wait
		nil,       // arguments
	)
	if err != nil {
		return nil, fmt.Errorf("declare queue %s: %w", queueName, err)
	}

	return &Client{ID: id, channel: ch, queueName: queueName}, nil
}

// SendMessage publishes op, assigning it an ID first when it has none.
func (c *Client) SendMessage(op *types.Operation) error {
	if op.ID == "" {
		op.ID = uuid.NewString()
	}
	req, err := json.Marshal(op)
	if err != nil {
		return err
	}

	return c.channel.Publish(
		"",
		c.queueName,
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			MessageId:   op.ID,
			AppId:       c.ID,
			Timestamp:   time.Now(),
			Body:        req,
		},
	)
}

// Close releases the client's channel.
func (c *Client) Close() error {
	if c == nil || c.channel == nil {
		return nil
	}
	return c.channel.Close()
}

func (c *Client) Insert(list, value string) error {
	return c.SendMessage(&types.Operation{Action: types.InsertA, List: list, Value: value})
}

func (c *Client) Remove(list, value string) error {
	return c.SendMessage(&types.Operation{Action: types.RemoveA, List: list, Value: value})
}

func (c *Client) Search(list, value string) error {
	return c.SendMessage(&types.Operation{Action: types.SearchA, List: list, Value: value})
}

func (c *Client) Update(list, oldValue, newValue string) error {
	return c.SendMessage(&types.Operation{Action: types.UpdateA, List: list, Value: oldValue, NewValue: newValue})
}

func (c *Client) Pop(list string) error {
	return c.SendMessage(&types.Operation{Action: types.PopA, List: list})
}

func (c *Client) Get(list string, index int) error {
	return c.SendMessage(&types.Operation{Action: types.GetA, List: list, Index: index})
}

// ClientsManager reads "<clientId> <operation json>" lines and publishes each
// operation through a per-client Client. Clients idle for longer than the
// configured wait time are dropped.
type ClientsManager struct {
	clients   map[string]*ClientUsage
	input     io.Reader
	inputFile io.Closer
	follow    bool
	dial      func() (Publisher, error)
	queueName string
	idle      time.Duration
	logger    log15.Logger
	mux       sync.Mutex
	ctx       context.Context
	Cancel    context.CancelFunc
}

type ClientUsage struct {
	client   *Client
	lastUsed time.Time
}

func NewClientsManager(cfg *config.Config, dial func() (Publisher, error), logger log15.Logger) (manager *ClientsManager, err error) {
	var input io.Reader = os.Stdin
	var inputFile io.Closer
	follow := true
	if len(cfg.ClientsInputPath) != 0 {
		f, err := os.Open(cfg.ClientsInputPath)
		if err != nil {
			return nil, err
		}
		input, inputFile = f, f
		follow = false
	}
	idle := time.Duration(cfg.ServerWaitTimeSeconds) * time.Second
	if idle <= 0 {
		idle = 10 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &ClientsManager{
		clients:   make(map[string]*ClientUsage),
		input:     input,
		inputFile: inputFile,
		follow:    follow,
		dial:      dial,
		queueName: cfg.QueueName,
		idle:      idle,
		logger:    logger.New("service", "client"),
		ctx:       ctx,
		Cancel:    cancel,
	}, nil
}

func (cm *ClientsManager) ListenClientActions() error {
	if cm.input == os.Stdin {
		fmt.Println("Write clients tasks here in format <clientId> <operation>")
	}

	ticker := time.NewTicker(cm.idle)
	defer ticker.Stop()
	defer cm.closeAll()

	lines, errChan := SubscribeToFileInput(cm.ctx, cm.input, cm.follow)

	for {
		select {
		case <-cm.ctx.Done():
			return nil
		case <-ticker.C:
			cm.removeUnusedClients()
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if err := cm.processClientAction(line); err != nil {
				cm.logger.Error("Cannot process client action", "line", line, "error", err)
			}
		case err := <-errChan:
			if err != nil {
				return err
			}
		}
	}
}

func (cm *ClientsManager) removeUnusedClients() {
	cm.mux.Lock()
	defer cm.mux.Unlock()
	for clientId, clientUsage := range cm.clients {
		if time.Since(clientUsage.lastUsed) > cm.idle {
			delete(cm.clients, clientId)
			if err := clientUsage.client.Close(); err != nil {
				cm.logger.Warn("Cannot close client channel", "client", clientId, "error", err)
			}
			cm.logger.Debug("Client dropped", "client", clientId)
		}
	}
}

// closeAll drops every client and closes the input file, if one was opened.
func (cm *ClientsManager) closeAll() {
	cm.mux.Lock()
	defer cm.mux.Unlock()
	for clientId, clientUsage := range cm.clients {
		delete(cm.clients, clientId)
		if err := clientUsage.client.Close(); err != nil {
			cm.logger.Warn("Cannot close client channel", "client", clientId, "error", err)
		}
	}
	if cm.inputFile != nil {
		if err := cm.inputFile.Close(); err != nil {
			cm.logger.Warn("Cannot close clients input", "error", err)
		}
		cm.inputFile = nil
	}
}

func (cm *ClientsManager) processClientAction(inputStr string) error {
	cm.mux.Lock()
	defer cm.mux.Unlock()

	clientId, opStr, found := strings.Cut(strings.TrimSpace(inputStr), " ")
	if !found || clientId == "" {
		return fmt.Errorf("wrong input string, should be in format <clientId> <operation>")
	}

	op := &types.Operation{}
	if err := json.Unmarshal([]byte(opStr), op); err != nil {
		return err
	}
	if usage, ok := cm.clients[clientId]; ok {
		usage.lastUsed = time.Now()
		return usage.client.SendMessage(op)
	}

	ch, err := cm.dial()
	if err != nil {
		return err
	}
	client, err := NewClient(clientId, ch, cm.queueName)
	if err != nil {
		if cerr := ch.Close(); cerr != nil {
			cm.logger.Warn("Cannot close client channel", "client", clientId, "error", cerr)
		}
		return err
	}
	cm.clients[clientId] = &ClientUsage{client, time.Now()}
	return client.SendMessage(op)
}
