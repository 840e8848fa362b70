package drive

// Mix applies the differential drive mixing law. Linear velocity feeds both
// wheels equally, angular velocity biases each wheel by half the angular
// gain in opposite directions. Outputs are unsaturated, clamping to the PWM
// range happens at actuation time.
func Mix(linear, angular, kSpeed, kAngular float64) (left, right float64) {
	left = kSpeed * (linear - 0.5*kAngular*angular)
	right = kSpeed * (linear + 0.5*kAngular*angular)
	return
}
