package game

// ConsumePowerup applies the effect of power-up item to agentID. Points
// decay with RelTimeStep so that power-ups collected sooner in a look-ahead
// are worth more.
func (s *State) ConsumePowerup(agentID int, item ItemKind) {
	if agentID < 0 || agentID >= AgentCount || !IsPowerUp(item) {
		return
	}
	a := &s.Agents[agentID]
	points := 1.0 - float64(s.RelTimeStep)/100.0

	switch item {
	case ExtraBomb:
		a.MaxBombCount++
		a.ExtraBombPowerupPoints += points
	case IncrRange:
		a.BombStrength++
		a.ExtraRangePowerupPoints += points
	case Kick:
		if a.CanKick {
			a.OtherKickPowerupPoints += points
		} else {
			a.FirstKickPowerupPoints += points
		}
		a.CanKick = true
	}
	a.PowerupsCollected++
}
