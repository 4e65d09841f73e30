package service

import (
	"github.com/rocketscienceinc/gomoku-backend/internal/entity"
	"github.com/rocketscienceinc/gomoku-backend/internal/gomoku"
)

type BotService interface {
	ChooseMove(board *entity.Board, mover entity.Color) (gomoku.Point, bool)
}

type botService struct{}

func NewBotService() BotService {
	return &botService{}
}

func (that *botService) ChooseMove(board *entity.Board, mover entity.Color) (gomoku.Point, bool) {
	return gomoku.ChooseMove(board, mover)
}
