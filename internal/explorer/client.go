package explorer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const DefaultBaseURL = "https://mempool.space/api"

type Config struct {
	BaseURL        string
	UserAgent      string
	Timeout        time.Duration
	IncludeMempool bool
	// Observer получает метку исхода ("ok", "http_404", "malformed", "error") и длительность запроса.
	Observer func(status string, took time.Duration)
}

// Client ходит в Esplora-совместимый API (mempool.space, blockstream.info).
type Client struct {
	http           *http.Client
	baseURL        string
	userAgent      string
	includeMempool bool
	observe        func(string, time.Duration)
}

// TxoStats: суммы входящих и потраченных выходов адреса, в сатоши.
type TxoStats struct {
	FundedTxoSum uint64
	SpentTxoSum  uint64
}

type AddressStats struct {
	Address string
	Chain   TxoStats
	Mempool TxoStats
}

// поля-указатели: отличаем "нет поля" от нуля
type txoStatsResp struct {
	FundedTxoSum *uint64 `json:"funded_txo_sum"`
	SpentTxoSum  *uint64 `json:"spent_txo_sum"`
}

type addressResp struct {
	ChainStats   *txoStatsResp `json:"chain_stats"`
	MempoolStats *txoStatsResp `json:"mempool_stats"`
}

// NewClient: пустой BaseURL означает DefaultBaseURL; любой другой должен
// быть абсолютным http(s) адресом.
func NewClient(cfg Config) (*Client, error) {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	if u, err := url.Parse(base); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBaseURL, cfg.BaseURL)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	tr := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 60 * time.Second}).DialContext,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 5 * time.Second,
	}
	observe := cfg.Observer
	if observe == nil {
		observe = func(string, time.Duration) {}
	}
	return &Client{
		http:           &http.Client{Timeout: timeout, Transport: tr},
		baseURL:        base,
		userAgent:      cfg.UserAgent,
		includeMempool: cfg.IncludeMempool,
		observe:        observe,
	}, nil
}

func (c *Client) BaseURL() string { return c.baseURL }

// AddressURL: <base>/address/<address>
func (c *Client) AddressURL(address string) string {
	return fmt.Sprintf("%s/address/%s", c.baseURL, url.PathEscape(address))
}

// AddressStats делает ровно один GET без повторов.
func (c *Client) AddressStats(ctx context.Context, address string) (AddressStats, error) {
	u := c.AddressURL(address)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return AddressStats{}, err
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.observe("error", time.Since(start))
		return AddressStats{}, fmt.Errorf("explorer: get %s: %w", u, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		c.observe(fmt.Sprintf("http_%d", resp.StatusCode), time.Since(start))
		// дочитываем тело, чтобы соединение вернулось в пул
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return AddressStats{}, &StatusError{StatusCode: resp.StatusCode, URL: u}
	}

	var ar addressResp
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&ar); err != nil {
		c.observe("malformed", time.Since(start))
		return AddressStats{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if ar.ChainStats == nil || ar.ChainStats.FundedTxoSum == nil || ar.ChainStats.SpentTxoSum == nil {
		c.observe("malformed", time.Since(start))
		return AddressStats{}, fmt.Errorf("%w: chain_stats.funded_txo_sum/spent_txo_sum missing", ErrMalformedResponse)
	}
	c.observe("ok", time.Since(start))

	st := AddressStats{
		Address: address,
		Chain:   TxoStats{FundedTxoSum: *ar.ChainStats.FundedTxoSum, SpentTxoSum: *ar.ChainStats.SpentTxoSum},
	}
	if m := ar.MempoolStats; m != nil {
		if m.FundedTxoSum != nil {
			st.Mempool.FundedTxoSum = *m.FundedTxoSum
		}
		if m.SpentTxoSum != nil {
			st.Mempool.SpentTxoSum = *m.SpentTxoSum
		}
	}
	return st, nil
}

// Balance = funded - spent (по цепочке, плюс мемпул, если включён).
// Отрицательный результат: ErrNegativeBalance, а не переполнение.
func (c *Client) Balance(ctx context.Context, address string) (uint64, error) {
	st, err := c.AddressStats(ctx, address)
	if err != nil {
		return 0, err
	}
	return st.Balance(c.includeMempool)
}

func (s AddressStats) Balance(includeMempool bool) (uint64, error) {
	funded, spent := s.Chain.FundedTxoSum, s.Chain.SpentTxoSum
	if includeMempool {
		funded += s.Mempool.FundedTxoSum
		spent += s.Mempool.SpentTxoSum
	}
	if spent > funded {
		return 0, fmt.Errorf("%w: %s funded=%d spent=%d", ErrNegativeBalance, s.Address, funded, spent)
	}
	return funded - spent, nil
}
