package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/HH-Alex-Ma/xarl-email-agent/internal/core"
)

const (
	// ModeWeCom pushes application messages to individual WeCom users
	ModeWeCom = "wecom"

	// DefaultWeComBaseURL is the WeCom server API root
	DefaultWeComBaseURL = "https://qyapi.weixin.qq.com/cgi-bin"

	tokenRefreshMargin = time.Minute
)

// errcodes meaning the cached access token is no longer valid
var staleTokenCodes = map[int]bool{40014: true, 42001: true}

// WeComNotifier sends application messages through the WeCom API. The
// access token is cached until shortly before it expires.
type WeComNotifier struct {
	httpClient *http.Client
	baseURL    string
	corpID     string
	corpSecret string
	agentID    string
	timeout    time.Duration
	logger     *zap.Logger

	mu        sync.Mutex
	token     string
	expiresAt time.Time
	now       func() time.Time
}

type tokenResponse struct {
	ErrCode     int    `json:"errcode"`
	ErrMsg      string `json:"errmsg"`
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

type appMessage struct {
	ToUser  string      `json:"touser"`
	MsgType string      `json:"msgtype"`
	AgentID interface{} `json:"agentid"`
	Text    textBody    `json:"text"`
	Safe    int         `json:"safe"`
}

// NewWeComNotifier creates a new WeCom application notifier
func NewWeComNotifier(
	httpClient *http.Client,
	baseURL string,
	corpID string,
	corpSecret string,
	agentID string,
	timeout time.Duration,
	logger *zap.Logger,
) *WeComNotifier {
	if baseURL == "" {
		baseURL = DefaultWeComBaseURL
	}
	return &WeComNotifier{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		corpID:     corpID,
		corpSecret: corpSecret,
		agentID:    agentID,
		timeout:    timeout,
		logger:     logger,
		now:        time.Now,
	}
}

func (n *WeComNotifier) Mode() string {
	return ModeWeCom
}

// RequiresTarget is true: application messages go to a named user
func (n *WeComNotifier) RequiresTarget() bool {
	return true
}

// Notify sends the content to msg.Target
func (n *WeComNotifier) Notify(ctx context.Context, msg core.Notification) (*core.DispatchReport, error) {
	ctx, cancel := withTimeout(ctx, n.timeout)
	defer cancel()

	token, err := n.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	n.logger.Info("Sending WeCom application message", zap.String("touser", msg.Target))
	report, err := postJSON(ctx, n.httpClient, n.baseURL+"/message/send?access_token="+url.QueryEscape(token), appMessage{
		ToUser:  msg.Target,
		MsgType: "text",
		AgentID: agentIDValue(n.agentID),
		Text:    textBody{Content: msg.Content},
		Safe:    0,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to send WeCom message: %w", err)
	}

	if code, ok := report.Response.Get("errcode").AsNumber(); ok {
		if c, err := code.Int64(); err == nil && staleTokenCodes[int(c)] {
			n.logger.Warn("WeCom access token rejected, dropping cache", zap.Int64("errcode", c))
			n.invalidate()
		}
	}
	return report, nil
}

func (n *WeComNotifier) accessToken(ctx context.Context) (string, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.token != "" && n.now().Before(n.expiresAt) {
		return n.token, nil
	}

	query := url.Values{}
	query.Set("corpid", n.corpID)
	query.Set("corpsecret", n.corpSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.baseURL+"/gettoken?"+query.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("failed to build token request: %w", err)
	}
	resp, err := n.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to get WeCom access token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", core.NewTransportError("get WeCom access token", resp)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read token response: %w", err)
	}
	var tr tokenResponse
	if err := json.Unmarshal(raw, &tr); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}
	if tr.ErrCode != 0 || tr.AccessToken == "" {
		return "", fmt.Errorf("WeCom token request rejected: errcode %d: %s", tr.ErrCode, tr.ErrMsg)
	}

	n.token = tr.AccessToken
	n.expiresAt = n.now().Add(time.Duration(tr.ExpiresIn)*time.Second - tokenRefreshMargin)
	n.logger.Debug("Obtained WeCom access token", zap.Int("expires_in", tr.ExpiresIn))
	return n.token, nil
}

func (n *WeComNotifier) invalidate() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.token = ""
}

// agentIDValue sends numeric agent ids as numbers
func agentIDValue(id string) interface{} {
	if v, err := strconv.Atoi(id); err == nil {
		return v
	}
	return id
}
