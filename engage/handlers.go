package engage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hazyhaar/feedloop/settings"
	"github.com/hazyhaar/feedloop/transport"
)

// Register wires the scheduler's inbound message handlers into the bus.
// The application context, not the per-message one, drives enable and
// engine callbacks: messages outlive their delivery.
func (s *Scheduler) Register(appCtx context.Context, bus *transport.Bus) {
	bus.RegisterLocal(transport.MsgSettingsUpdated, func(ctx context.Context, payload []byte) ([]byte, error) {
		var st settings.Settings
		if err := json.Unmarshal(payload, &st); err != nil {
			return nil, fmt.Errorf("engage: settings payload: %w", err)
		}
		s.ApplySettings(appCtx, st.AutomationEnabled, st.EnableLiking, st.EnableCommenting, st.Mode, st.CommentProbability)
		return nil, nil
	})

	bus.RegisterLocal(transport.MsgAutomationToggle, func(ctx context.Context, payload []byte) ([]byte, error) {
		var msg transport.AutomationToggle
		if err := json.Unmarshal(payload, &msg); err != nil {
			return nil, fmt.Errorf("engage: toggle payload: %w", err)
		}
		if msg.Enabled {
			return nil, s.Enable(appCtx)
		}
		s.Disable()
		return nil, nil
	})

	bus.RegisterLocal(transport.MsgGenerationReply, func(ctx context.Context, payload []byte) ([]byte, error) {
		var msg transport.GenerationReply
		if err := json.Unmarshal(payload, &msg); err != nil {
			return nil, fmt.Errorf("engage: reply payload: %w", err)
		}
		// A reply tagged for an item that is no longer pending is stale.
		if msg.ItemID != "" && msg.ItemID != s.engine.PendingItemID() {
			s.cfg.Logger.Debug("scheduler: discarding reply for non-pending item", "item_id", msg.ItemID)
			return nil, nil
		}
		s.engine.OnGenerationReply(appCtx, msg.Text)
		return nil, nil
	})

	bus.RegisterLocal(transport.MsgGenerationError, func(ctx context.Context, payload []byte) ([]byte, error) {
		var msg transport.GenerationError
		if err := json.Unmarshal(payload, &msg); err != nil {
			return nil, fmt.Errorf("engage: error payload: %w", err)
		}
		s.engine.OnGenerationError(appCtx, msg.Error)
		return nil, nil
	})

	bus.RegisterLocal(transport.MsgPing, func(ctx context.Context, payload []byte) ([]byte, error) {
		return json.Marshal(transport.Pong{Alive: true})
	})
}
