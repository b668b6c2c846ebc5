package game

import (
	"tankarena/control"
	"tankarena/geom"
	"tankarena/protocol"
)

// rosterSync 把入站玩家事件接到名册上；自己的回显交给 Controls 对账，不进名册
type rosterSync struct{ g *Game }

func (s rosterSync) AddPlayer(rec protocol.PlayerRecord) error {
	if s.g.isSelf(rec.UserID) {
		return nil
	}
	_, err := s.g.roster.AddPlayer(rec)
	return err
}

func (s rosterSync) RemovePlayer(userID string) error {
	return s.g.roster.RemovePlayer(userID)
}

func (s rosterSync) ChangePlayerRotation(rec protocol.RotationChange) error {
	if s.g.isSelf(rec.UserID) {
		s.observe(control.Rotate, rec.Rotation)
		return nil
	}
	return s.g.roster.ChangePlayerRotation(rec)
}

func (s rosterSync) ChangePlayerPosition(rec protocol.PositionChange) error {
	if s.g.isSelf(rec.UserID) {
		s.observe(control.Translate, rec.Position)
		return nil
	}
	return s.g.roster.ChangePlayerPosition(rec)
}

func (s rosterSync) Shot(rec protocol.Shot) error {
	if s.g.isSelf(rec.UserID) {
		return nil
	}
	return s.g.roster.Shot(rec)
}

func (s rosterSync) observe(kind control.MoveKind, v geom.Vec3) {
	if s.g.moveCtrl == nil {
		return
	}
	s.g.moveCtrl.Controls().ObserveServer(kind, v)
}
