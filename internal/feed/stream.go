package feed

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/yourusername/quantbench/internal/models"
)

// BarHandler is called for each bar received from the stream
type BarHandler func(bar *models.PriceBar) error

// ReconnectConfig controls stream reconnection behavior
type ReconnectConfig struct {
	MaxRetries        int
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	BackoffMultiplier float64
}

// DefaultReconnectConfig returns recommended reconnect defaults
func DefaultReconnectConfig() ReconnectConfig {
	return ReconnectConfig{
		MaxRetries:        5,
		InitialBackoff:    time.Second,
		MaxBackoff:        30 * time.Second,
		BackoffMultiplier: 2.0,
	}
}

// StreamClient handles a WebSocket connection to a live bar feed. It is used
// to record incoming bars for later backtesting, not to trade on.
type StreamClient struct {
	url             string
	apiKey          string
	conn            *websocket.Conn
	mu              sync.RWMutex
	isConnected     bool
	symbols         []string
	reconnectConfig ReconnectConfig
	logger          *logrus.Logger
}

// streamMessage is the provider's wire format
type streamMessage struct {
	Op        string    `json:"op"`
	Symbol    string    `json:"symbol,omitempty"`
	Timestamp time.Time `json:"timestamp,omitempty"`
	Open      string    `json:"open,omitempty"`
	High      string    `json:"high,omitempty"`
	Low       string    `json:"low,omitempty"`
	Close     string    `json:"close,omitempty"`
	Volume    string    `json:"volume,omitempty"`
}

// subscriptionMessage subscribes the connection to bar updates
type subscriptionMessage struct {
	Op      string   `json:"op"`
	APIKey  string   `json:"api_key,omitempty"`
	Symbols []string `json:"symbols"`
}

// NewStreamClient creates a websocket bar stream client
func NewStreamClient(url, apiKey string, reconnect ReconnectConfig, logger *logrus.Logger) (*StreamClient, error) {
	if url == "" {
		return nil, fmt.Errorf("%w: stream url is required", models.ErrInvalidConfig)
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &StreamClient{
		url:             url,
		apiKey:          apiKey,
		reconnectConfig: reconnect,
		logger:          logger,
	}, nil
}

// Connect establishes the websocket connection and subscribes to symbols
func (s *StreamClient) Connect(ctx context.Context, symbols []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to stream: %w", err)
	}

	sub := subscriptionMessage{Op: "subscribe", APIKey: s.apiKey, Symbols: symbols}
	if err := conn.WriteJSON(sub); err != nil {
		conn.Close()
		return fmt.Errorf("failed to subscribe: %w", err)
	}

	s.conn = conn
	s.symbols = symbols
	s.isConnected = true
	s.logger.WithField("symbols", symbols).Info("Connected to bar stream")
	return nil
}

// IsConnected reports whether the stream is currently connected
func (s *StreamClient) IsConnected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isConnected
}

// Listen reads bars until ctx is cancelled, invoking handler for each one.
// Dropped connections are re-established with exponential backoff; bad bars
// are logged and skipped.
func (s *StreamClient) Listen(ctx context.Context, handler BarHandler) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		msg, err := s.readMessage()
		if err != nil {
			s.logger.Warnf("Stream read failed: %v", err)
			if reconnectErr := s.reconnect(ctx); reconnectErr != nil {
				return reconnectErr
			}
			continue
		}

		if msg.Op != "bar" {
			continue
		}
		bar, err := s.convertBar(msg)
		if err != nil {
			s.logger.Warnf("Dropping stream bar: %v", err)
			continue
		}
		if err := handler(bar); err != nil {
			return err
		}
	}
}

func (s *StreamClient) readMessage() (*streamMessage, error) {
	s.mu.RLock()
	conn := s.conn
	s.mu.RUnlock()
	if conn == nil {
		return nil, fmt.Errorf("stream is not connected")
	}

	msg := &streamMessage{}
	if err := conn.ReadJSON(msg); err != nil {
		return nil, err
	}
	return msg, nil
}

func (s *StreamClient) reconnect(ctx context.Context) error {
	s.mu.Lock()
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
	s.isConnected = false
	symbols := s.symbols
	s.mu.Unlock()

	backoff := s.reconnectConfig.InitialBackoff
	for attempt := 1; attempt <= s.reconnectConfig.MaxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}

		err := s.Connect(ctx, symbols)
		if err == nil {
			return nil
		}
		s.logger.Warnf("Reconnect attempt %d failed: %v", attempt, err)

		backoff = time.Duration(float64(backoff) * s.reconnectConfig.BackoffMultiplier)
		if backoff > s.reconnectConfig.MaxBackoff {
			backoff = s.reconnectConfig.MaxBackoff
		}
	}
	return fmt.Errorf("stream reconnect failed after %d attempts", s.reconnectConfig.MaxRetries)
}

func (s *StreamClient) convertBar(msg *streamMessage) (*models.PriceBar, error) {
	open, err := decimal.NewFromString(msg.Open)
	if err != nil {
		return nil, fmt.Errorf("bad open: %w", err)
	}
	high, err := decimal.NewFromString(msg.High)
	if err != nil {
		return nil, fmt.Errorf("bad high: %w", err)
	}
	low, err := decimal.NewFromString(msg.Low)
	if err != nil {
		return nil, fmt.Errorf("bad low: %w", err)
	}
	closePrice, err := decimal.NewFromString(msg.Close)
	if err != nil {
		return nil, fmt.Errorf("bad close: %w", err)
	}
	volume, err := decimal.NewFromString(msg.Volume)
	if err != nil {
		return nil, fmt.Errorf("bad volume: %w", err)
	}

	bar := &models.PriceBar{
		Symbol:    msg.Symbol,
		Timestamp: msg.Timestamp.UTC(),
		Open:      open,
		High:      high,
		Low:       low,
		Close:     closePrice,
		Volume:    volume,
	}
	return bar, bar.Validate()
}

// Close shuts the stream connection down
func (s *StreamClient) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.isConnected = false
	if s.conn != nil {
		err := s.conn.Close()
		s.conn = nil
		return err
	}
	return nil
}
