package session

// applyLeveling advances the player's level while their total XP clears the
// next cumulative threshold, applying the configured stat increments per
// level. Called immediately after a victory, before routing. Returns the
// number of levels gained.
func (s *Session) applyLeveling() int {
	curve := s.tuning.XPCurve
	up := s.tuning.LevelUp

	levels := 0
	for s.gs.Stats.XP >= curve.ThresholdFor(s.gs.Stats.Level+1) {
		s.gs.Stats.Level++
		levels++
		s.gs.Stats.MaxHealth += up.HealthBonus
		s.gs.Stats.Attack += up.AttackBonus
		s.gs.Stats.Defense += up.DefenseBonus
		if up.RestoreOnLevel {
			s.gs.Stats.Health = s.gs.Stats.MaxHealth
			s.gs.Stats.Mana = s.gs.Stats.MaxMana
		}
	}
	if levels > 0 {
		s.logger.Info("level up", "level", s.gs.Stats.Level, "gained", levels)
	}
	return levels
}
