package http

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/vovakirdan/wirechat-channels/internal/chat"
	"github.com/vovakirdan/wirechat-channels/internal/core"
	"github.com/vovakirdan/wirechat-channels/internal/proto"
)

func inboundToCommand(inbound proto.Inbound) (*core.Command, *proto.Error, error) {
	switch inbound.Type {
	case proto.InboundTypeOpen, proto.InboundTypeClose:
		var data proto.ChannelData
		if err := json.Unmarshal(inbound.Data, &data); err != nil {
			return nil, nil, err
		}
		kind := core.CommandOpenChannel
		if inbound.Type == proto.InboundTypeClose {
			kind = core.CommandCloseChannel
		}
		return &core.Command{Kind: kind, Channel: chat.ChannelID(data.Channel)}, nil, nil
	case proto.InboundTypeCreatePrivate:
		return &core.Command{Kind: core.CommandCreatePrivate}, nil, nil
	case proto.InboundTypeInvite, proto.InboundTypeExclude:
		var data proto.TargetData
		if err := json.Unmarshal(inbound.Data, &data); err != nil {
			return nil, nil, err
		}
		name := strings.TrimSpace(data.Name)
		if name == "" {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "name is required"}, nil
		}
		kind := core.CommandInvite
		if inbound.Type == proto.InboundTypeExclude {
			kind = core.CommandExclude
		}
		return &core.Command{Kind: kind, Target: name}, nil, nil
	case proto.InboundTypeTalk:
		var data proto.TalkData
		if err := json.Unmarshal(inbound.Data, &data); err != nil {
			return nil, nil, err
		}
		if data.Text == "" {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "text is required"}, nil
		}
		return &core.Command{
			Kind:    core.CommandTalk,
			Channel: chat.ChannelID(data.Channel),
			Text:    data.Text,
			Class:   chat.SpeakClass(data.Class),
		}, nil, nil
	case proto.InboundTypeList:
		return &core.Command{Kind: core.CommandListChannels}, nil, nil
	case proto.InboundTypeHello:
		return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "already greeted"}, nil
	default:
		return nil, &proto.Error{Code: "invalid_message", Msg: "unknown message type"}, nil
	}
}

func outboundFromEvent(event *core.Event) proto.Outbound {
	switch event.Kind {
	case core.EventChannelMessage:
		return eventOutbound(proto.EventMessage, proto.EventChannelMessage{
			Channel: uint16(event.Channel),
			User:    event.User,
			Text:    event.Text,
			Class:   int(event.Class),
			TS:      time.Now().Unix(),
		})
	case core.EventChannelEvent:
		return eventOutbound(proto.EventMembership, proto.EventMembershipData{
			Channel: uint16(event.Channel),
			User:    event.User,
			Action:  event.Membership.String(),
		})
	case core.EventChannelClosed:
		return eventOutbound(proto.EventChannelClosed, proto.EventChannelClosedData{
			Channel: uint16(event.Channel),
		})
	case core.EventSystemMessage:
		return eventOutbound(proto.EventSystem, proto.EventSystemData{
			Kind: messageKind(event.MessageKind),
			Text: event.Text,
		})
	case core.EventChannelOpened, core.EventPrivateCreated:
		name := proto.EventChannelOpened
		if event.Kind == core.EventPrivateCreated {
			name = proto.EventPrivateCreated
		}
		var data proto.Channel
		if event.Info != nil {
			data = protoChannel(*event.Info, 0)
		}
		return eventOutbound(name, data)
	case core.EventChannelList:
		return eventOutbound(proto.EventChannelList, proto.EventChannelListData{
			Channels: lo.Map(event.Channels, protoChannel),
		})
	case core.EventError:
		if event.Error == nil {
			return proto.Outbound{Type: proto.OutboundTypeError, Error: &proto.Error{Code: "unknown", Msg: "unknown error"}}
		}
		return proto.Outbound{
			Type:  proto.OutboundTypeError,
			Error: &proto.Error{Code: event.Error.Code, Msg: event.Error.Message},
		}
	default:
		return proto.Outbound{Type: proto.OutboundTypeEvent}
	}
}

func eventOutbound(name string, data any) proto.Outbound {
	return proto.Outbound{Type: proto.OutboundTypeEvent, Event: name, Data: data}
}

func protoChannel(info core.ChannelInfo, _ int) proto.Channel {
	return proto.Channel{
		ID:      uint16(info.ID),
		Name:    info.Name,
		Kind:    info.Kind,
		Members: info.Members,
	}
}

func messageKind(kind chat.MessageKind) string {
	if kind == chat.MessagePartyManagement {
		return "party_management"
	}
	return "status"
}
