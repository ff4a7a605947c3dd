package session

import (
	"encoding/json"
	"log"

	"github.com/alinouri1989/chatnest-core/models"
	"github.com/alinouri1989/chatnest-core/peer"
)

// callEventPayload, gelen/giden çağrı event'inin sabit alanları.
// Karşı tarafın profili aynı objede dinamik anahtarla gelir; extractPeer
// ile ayrıştırılır.
type callEventPayload struct {
	CallID   string          `json:"callId"`
	CallType models.CallType `json:"callType"`
}

func (c *Client) registerCallHandlers() {
	c.callHub.On("ReceiveInitialCalls", func(args []json.RawMessage) {
		var calls map[string]*models.WireCall
		if decodeArg("ReceiveInitialCalls", args, &calls) {
			c.stores.Calls.Initialize(calls)
		}
	})

	c.callHub.On("ReceiveInitialCallRecipientProfiles", func(args []json.RawMessage) {
		var profiles map[string]models.WireContactProfile
		if decodeArg("ReceiveInitialCallRecipientProfiles", args, &profiles) {
			c.stores.Contacts.Merge(profiles)
		}
	})

	c.callHub.On("ReceiveIncomingCall", func(args []json.RawMessage) {
		payload, peerID, ok := c.decodeCallEvent("ReceiveIncomingCall", args)
		if !ok {
			return
		}
		ctx, cancel := c.opCtx()
		defer cancel()
		c.calls.HandleIncomingCall(ctx, payload.CallID, peerID, payload.CallType)
	})

	c.callHub.On("ReceiveOutgoingCall", func(args []json.RawMessage) {
		payload, _, ok := c.decodeCallEvent("ReceiveOutgoingCall", args)
		if !ok {
			return
		}
		c.calls.HandleOutgoingCall(payload.CallID)
	})

	c.callHub.On("ReceiveEndCall", func(args []json.RawMessage) {
		var payload struct {
			Call map[string]*models.WireCall `json:"call"`
		}
		if !decodeArg("ReceiveEndCall", args, &payload) {
			return
		}
		for callID, wire := range payload.Call {
			c.stores.Calls.ApplyResult(callID, wire)
			c.calls.HandleRemoteEnd(callID)
		}

		// Aynı payload'da karşı tarafın güncel profili de gelir
		// (son görülme zamanı çağrı bitiminde değişir).
		c.mergeExtraProfiles("ReceiveEndCall", args, "call")
	})

	c.callHub.On("ReceiveDeleteCall", func(args []json.RawMessage) {
		var callID string
		if decodeArg("ReceiveDeleteCall", args, &callID) {
			c.stores.Calls.Delete(callID)
		}
	})

	c.callHub.On("ReceiveIceCandidate", func(args []json.RawMessage) {
		var cand peer.ICECandidate
		if decodeArg("ReceiveIceCandidate", args, &cand) {
			c.calls.HandleRemoteCandidate(cand)
		}
	})

	c.callHub.On("ReceiveSdp", func(args []json.RawMessage) {
		var payload struct {
			SDP      peer.SessionDescription `json:"sdp"`
			CallType models.CallType         `json:"callType"`
		}
		if !decodeArg("ReceiveSdp", args, &payload) {
			return
		}
		ctx, cancel := c.opCtx()
		defer cancel()
		c.calls.HandleSdp(ctx, payload.SDP)
	})

	// Kabul sinyali sadece caller'ın bekleme durumunu günceller; SDP
	// exchange ReceiveSdp üzerinden yürür ve UI ilk medyaya kadar açık kalır.
	c.callHub.On("ReceiveAcceptCall", func(args []json.RawMessage) {
		c.calls.HandleAcceptCall("")
	})

	for _, event := range []string{"UnexpectedError", "ValidationError", "ConnectionError", "Error"} {
		c.callHub.On(event, func(args []json.RawMessage) {
			var payload errorPayload
			if decodeArg("call error", args, &payload) {
				c.reportError("call", payload.Message)
			}
		})
	}
}

// decodeCallEvent, çağrı event'inin sabit alanlarını ve karşı tarafın
// id'sini çözer. Profil alanı varsa contact havuzuna merge edilir.
func (c *Client) decodeCallEvent(name string, args []json.RawMessage) (callEventPayload, string, bool) {
	var payload callEventPayload
	if !decodeArg(name, args, &payload) {
		return callEventPayload{}, "", false
	}
	if payload.CallID == "" {
		log.Printf("[session] %s without callId, ignoring", name)
		return callEventPayload{}, "", false
	}
	peerID := c.mergeExtraProfiles(name, args, "callId", "callType")
	return payload, peerID, true
}

// mergeExtraProfiles, event objesindeki dinamik anahtarlı profil alanlarını
// contact havuzuna merge eder ve karşı tarafın id'sini döner. Sabit alanlar
// ve lokal kullanıcının kendi anahtarı atlanır.
func (c *Client) mergeExtraProfiles(name string, args []json.RawMessage, fixedKeys ...string) string {
	if len(args) == 0 {
		return ""
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(args[0], &raw); err != nil {
		return ""
	}

	fixed := make(map[string]bool, len(fixedKeys)+1)
	for _, k := range fixedKeys {
		fixed[k] = true
	}
	fixed[c.userID] = true

	peerID := ""
	for key, val := range raw {
		if fixed[key] {
			continue
		}
		var profile models.WireContactProfile
		if err := json.Unmarshal(val, &profile); err != nil {
			log.Printf("[session] %s: malformed profile for %s, skipping", name, key)
			continue
		}
		c.stores.Contacts.Merge(map[string]models.WireContactProfile{key: profile})
		peerID = key
	}
	return peerID
}
