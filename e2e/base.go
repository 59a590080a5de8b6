package e2e

import (
	"chatchat/auth"
	"chatchat/domain/chat"
	"chatchat/domain/event"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gookit/color"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/suite"
)

type BaseSuite struct {
	suite.Suite
	Config Config
}

// SetupSuite loads the environment configuration and skips when no server is reachable.
func (s *BaseSuite) SetupSuite() {
	var err error
	s.Config, err = LoadConfig()
	s.Require().NoError(err)
	if s.Config.ServerAddr == "" || s.Config.Secret == "" {
		s.T().Skip("E2E_SERVER_ADDR and JWT_HMAC_SECRET are required")
	}
}

// Client is one live-channel participant.
type Client struct {
	suite *BaseSuite
	name  string
	conn  *websocket.Conn
}

func (s *BaseSuite) Token(identity chat.Identity) string {
	signed, err := auth.GenerateToken(s.Config.Secret, identity, time.Hour)
	s.Require().NoError(err)
	return signed
}

// Connect opens a live channel for identity and prints a colorized header for the step.
func (s *BaseSuite) Connect(identity chat.Identity) *Client {
	header := fmt.Sprintf("  ====== %s connects ======", identity.AuthorName())
	if s.Config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	s.T().Log(header)

	url := "ws" + strings.TrimPrefix(strings.TrimSuffix(s.Config.ServerAddr, "/"), "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"Authorization": {"Bearer " + s.Token(identity)}})
	s.Require().NoError(err, "Failed to connect to %s", url)
	s.Require().Equal(http.StatusSwitchingProtocols, resp.StatusCode)
	return &Client{suite: s, name: identity.AuthorName(), conn: conn}
}

func (c *Client) Send(name event.Name, data any) {
	raw, err := json.Marshal(data)
	c.suite.Require().NoError(err)
	c.suite.Require().NoError(c.conn.WriteJSON(event.Inbound{Event: name, Data: raw}))
}

// Expect reads frames until one named want arrives, other events are logged and skipped.
func (c *Client) Expect(want event.Name, into any) {
	deadline := time.Now().Add(5 * time.Second)
	for {
		c.suite.Require().NoError(c.conn.SetReadDeadline(deadline))
		var frame struct {
			Event event.Name      `json:"event"`
			Data  json.RawMessage `json:"data"`
		}
		c.suite.Require().NoError(c.conn.ReadJSON(&frame), "%s waited for %s", c.name, want)

		line := fmt.Sprintf("%s <- %s", c.name, frame.Event)
		if c.suite.Config.DebugJSON {
			line += "\n" + string(frame.Data)
		}
		c.suite.T().Log(line)

		if frame.Event != want {
			continue
		}
		if into != nil {
			c.suite.Require().NoError(json.Unmarshal(frame.Data, into))
		}
		return
	}
}

func (c *Client) Close() {
	_ = c.conn.Close()
}
