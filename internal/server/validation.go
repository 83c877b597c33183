package server

import (
	"sync"

	"bulls-cows/internal/rules"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var validatorOnce sync.Once

func registerValidators() {
	validatorOnce.Do(func() {
		engine, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = engine.RegisterValidation("displayname", func(fl validator.FieldLevel) bool {
			_, err := rules.ValidateDisplayName(fl.Field().String())
			return err == nil
		})
		_ = engine.RegisterValidation("roomcode", func(fl validator.FieldLevel) bool {
			_, err := rules.NormalizeRoomCode(fl.Field().String())
			return err == nil
		})
		_ = engine.RegisterValidation("digits4", func(fl validator.FieldLevel) bool {
			return rules.IsFourDistinctDigits(fl.Field().String())
		})
		_ = engine.RegisterValidation("turnseconds", func(fl validator.FieldLevel) bool {
			_, err := rules.ValidateTurnSeconds(int(fl.Field().Int()))
			return err == nil
		})
		_ = engine.RegisterValidation("chatmessage", func(fl validator.FieldLevel) bool {
			_, err := rules.ValidateChatMessage(fl.Field().String())
			return err == nil
		})
		_ = engine.RegisterValidation("musicaction", func(fl validator.FieldLevel) bool {
			_, err := rules.ValidateMusicAction(fl.Field().String())
			return err == nil
		})
	})
}

var (
	createRoomMessages = bindMessages{
		"DisplayName": {"required": rules.ErrInvalidDisplayName, "displayname": rules.ErrInvalidDisplayName},
	}
	joinRoomMessages = bindMessages{
		"DisplayName": {"required": rules.ErrInvalidDisplayName, "displayname": rules.ErrInvalidDisplayName},
		"RoomCode":    {"required": rules.ErrInvalidRoomCode, "roomcode": rules.ErrInvalidRoomCode},
	}
	roomURIMessages = bindMessages{
		"Code": {"required": rules.ErrInvalidRoomCode, "roomcode": rules.ErrInvalidRoomCode},
	}
	settingsMessages = bindMessages{
		"TurnSeconds": {"required": rules.ErrInvalidTurnSeconds, "turnseconds": rules.ErrInvalidTurnSeconds},
	}
	chatMessages = bindMessages{
		"Message": {"required": rules.ErrInvalidChatMessage, "chatmessage": rules.ErrInvalidChatMessage},
	}
	musicMessages = bindMessages{
		"Action": {"required": rules.ErrInvalidMusicAction, "musicaction": rules.ErrInvalidMusicAction},
	}
	secretMessages = bindMessages{
		"Secret": {"required": rules.ErrInvalidSecret, "digits4": rules.ErrInvalidSecret},
	}
	guessMessages = bindMessages{
		"Guess":  {"required": rules.ErrInvalidGuess, "digits4": rules.ErrInvalidGuess},
		"TurnNo": {"min": rules.ErrInvalidRequest},
	}
	rematchMessages = bindMessages{
		"Vote": {"required": rules.ErrInvalidVote},
	}
	watchMessages = bindMessages{
		"Key": {"required": rules.ErrInvalidSpectatorKey},
	}
)
