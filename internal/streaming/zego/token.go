package zego

import (
	"encoding/json"
	"fmt"

	"github.com/ZEGOCLOUD/zego_server_assistant/token/go/src/token04"
	"github.com/google/uuid"

	"github.com/streamcart/backend/internal/credentials"
)

// rtcRoomPayload is the payload for a room-based token04 token. See ZEGOCLOUD docs.
type rtcRoomPayload struct {
	RoomID    string      `json:"RoomId"`
	Privilege map[int]int `json:"Privilege"`
}

// TokenService mints room tokens against a ZEGOCLOUD app. serverSecret comes
// from the ZEGOCLOUD console and must be 32 characters.
type TokenService struct {
	appID        uint32
	serverSecret string
	validSec     int64
}

// NewTokenService creates a ZEGO token service, or an error when the app
// configuration is unusable.
func NewTokenService(appID uint32, serverSecret string, validSec int64) (*TokenService, error) {
	if appID == 0 || serverSecret == "" {
		return nil, fmt.Errorf("zego: app_id and server_secret required")
	}
	if len(serverSecret) != 32 {
		return nil, fmt.Errorf("zego: server_secret must be 32 characters")
	}
	if validSec <= 0 {
		validSec = 24 * 3600
	}
	return &TokenService{appID: appID, serverSecret: serverSecret, validSec: validSec}, nil
}

var _ credentials.Minter = (*TokenService)(nil)

// roomToken generates one token04 token for a room. Publish privilege is
// granted only to the broadcaster.
func (s *TokenService) roomToken(roomID, userID string, publish bool) (string, error) {
	privilege := map[int]int{
		token04.PrivilegeKeyLogin:   token04.PrivilegeEnable,
		token04.PrivilegeKeyPublish: token04.PrivilegeDisable,
	}
	if publish {
		privilege[token04.PrivilegeKeyPublish] = token04.PrivilegeEnable
	}
	payload, err := json.Marshal(rtcRoomPayload{RoomID: roomID, Privilege: privilege})
	if err != nil {
		return "", fmt.Errorf("zego: marshal payload: %w", err)
	}
	return token04.GenerateToken04(s.appID, userID, s.serverSecret, s.validSec, string(payload))
}

// MintPair generates a broadcaster/viewer credential set for an influencer.
// Both tokens address the same room; only the broadcaster token can publish.
func (s *TokenService) MintPair(influencerID uuid.UUID) (credentials.MintedPair, error) {
	room := "live_" + influencerID.String()
	broadcaster, err := s.roomToken(room, influencerID.String(), true)
	if err != nil {
		return credentials.MintedPair{}, fmt.Errorf("zego: broadcaster token: %w", err)
	}
	viewer, err := s.roomToken(room, "viewer_"+uuid.New().String(), false)
	if err != nil {
		return credentials.MintedPair{}, fmt.Errorf("zego: viewer token: %w", err)
	}
	return credentials.MintedPair{
		BroadcasterRoom:  room,
		BroadcasterToken: broadcaster,
		ViewerRoom:       room,
		ViewerToken:      viewer,
	}, nil
}
