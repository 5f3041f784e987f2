package sim

import "math"

// Angle returns the current tilt in radians. It is continuous and never
// wrapped, so multi-turn tilts are representable.
func (s *Simulation) Angle() float64 { return s.angle }

// AngularVelocity returns the current tilt rate in radians per second.
func (s *Simulation) AngularVelocity() float64 { return s.angleVel }

// TargetAngle returns the angle the tilt spring is pulling toward.
func (s *Simulation) TargetAngle() float64 { return s.targetAngle }

// Dragging reports whether the tilt is under direct manipulation.
func (s *Simulation) Dragging() bool { return s.dragging }

// RequestFlip turns the vessel half a revolution past the nearest upright
// or inverted rest angle of the current target. Repeated requests keep
// turning in the same direction.
func (s *Simulation) RequestFlip() {
	s.dragging = false
	s.targetAngle = nearestRest(s.targetAngle) + math.Pi
	s.logger().Debug("flip requested", "angle", s.angle, "target", s.targetAngle)
}

// SetDragAngle rotates the vessel directly by delta radians. The spring is
// bypassed until SetAngularVelocity releases the drag.
func (s *Simulation) SetDragAngle(delta float64) {
	s.dragging = true
	s.angle += delta
	s.angleVel = 0
	s.targetAngle = s.angle
}

// SetAngularVelocity releases a drag with the given tilt rate. The spring
// then targets the rest angle nearest to where that rate would coast under
// damping alone.
func (s *Simulation) SetAngularVelocity(v float64) {
	s.dragging = false
	s.angleVel = v
	coast := 0.0
	if s.cfg.Flip.Damping > 0 {
		coast = v / s.cfg.Flip.Damping
	}
	s.targetAngle = nearestRest(s.angle + coast)
}

// updateTilt advances the spring-damper toward the target angle, snapping
// exactly onto it once both error and rate are below epsilon.
func (s *Simulation) updateTilt(dt float64) {
	if s.dragging {
		return
	}
	flip := s.cfg.Flip

	delta := s.targetAngle - s.angle
	s.angleVel += delta * flip.Spring * dt
	s.angleVel *= math.Exp(-flip.Damping * dt)
	s.angle += s.angleVel * dt

	if math.Abs(delta) < flip.Epsilon && math.Abs(s.angleVel) < flip.Epsilon {
		s.angle = s.targetAngle
		s.angleVel = 0
	}
}

// nearestRest rounds an angle to the nearest multiple of pi.
func nearestRest(angle float64) float64 {
	return math.Round(angle/math.Pi) * math.Pi
}
