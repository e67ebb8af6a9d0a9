package mathx

// MapF32 linearly maps x from [inMin,inMax] to [outMin,outMax].
// Input is clamped to the in range first, so the result always lies within
// the out range. A degenerate in range returns outMin.
func MapF32(x, inMin, inMax, outMin, outMax float32) float32 {
	if inMax == inMin {
		return outMin
	}
	if inMax < inMin {
		inMin, inMax = inMax, inMin
		outMin, outMax = outMax, outMin
	}
	x = Clamp(x, inMin, inMax)
	return outMin + (x-inMin)*(outMax-outMin)/(inMax-inMin)
}
