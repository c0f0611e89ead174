package hott

// minCoordinateTolerance replaces a zero tolerance when no time elapsed since
// the last accepted fix.
const minCoordinateTolerance = 5

// coordinateWrap is the delta at which a coordinate crosses a full minute
// boundary in the degree*10000+minute encoding.
const coordinateWrap = 400000

// ParseGPS decodes a GPS frame from sub-blocks 1 to 3. Latitude and longitude
// are accepted only while their jump since the last accepted fix stays within
// the distance the current ground speed allows.
func ParseGPS(p Points, b *SubBlockSet, ctx *ParseContext) bool {
	b1, b2, b3 := b.Block(1), b.Block(2), b.Block(3)

	height := int16At(b2, 8) - 500
	climb1 := uint16At(b3, 0) - 30000
	climb3 := int(b3[2]) - 120
	velocity := int16At(b1, 4) * 1000

	valid := !ctx.filtering() || (climb1 > -20000 && climb3 > -90 && height >= -490 && height < 4500)
	if valid {
		if !ctx.filtering() || velocity <= 500000 {
			p[PointVelocity] = velocity
		}

		lat := int16At(b1, 7)*10000 + int16Split(b1[9], b2[0])
		if !ctx.Filter.TolerateSignChangeLat && b1[6] == 1 {
			lat = -lat
		}
		if ctx.acceptCoordinate(p, PointLatitude, lat, ctx.lastLatMs, ctx.Filter.LatitudeToleranceFactor) {
			ctx.lastLatMs = ctx.TimeMs
			p[PointLatitude] = lat
		}

		lon := int16At(b2, 2)*10000 + int16At(b2, 4)
		if !ctx.Filter.TolerateSignChangeLon && b2[1] == 1 {
			lon = -lon
		}
		if ctx.acceptCoordinate(p, PointLongitude, lon, ctx.lastLonMs, ctx.Filter.LongitudeToleranceFactor) {
			ctx.lastLonMs = ctx.TimeMs
			p[PointLongitude] = lon
		}

		p[PointAltitude] = height * 1000
		p[PointClimb1] = climb1 * 10
		p[PointClimb3] = climb3 * 1000
		p[PointDistance] = int16At(b2, 6) * 1000
		p[PointDirection] = int(b1[3]) * 1000
		p[PointTrip] = 0
		p[PointSats] = int(b3[3]) * 1000
		if fix := b3[4]; fix >= '0' && fix <= '9' {
			p[PointFix] = int(fix-'0') * 1000
		}
	}

	p[PointEventGPS] = int(b1[1]&0x0F) * 1000
	return valid
}

// CoordinateTolerance is the largest coordinate jump accepted after elapsedMs
// at the given velocity, in the fixed-point units of the velocity channel.
func CoordinateTolerance(velocity int, elapsedMs int64, factor float64) float64 {
	tol := float64(velocity) / 1000.0 * float64(elapsedMs) / factor
	if tol <= 0 {
		return minCoordinateTolerance
	}
	return tol
}

func (c *ParseContext) acceptCoordinate(p Points, idx, value int, lastMs int64, factor float64) bool {
	if !c.filtering() || p[idx] == 0 {
		return true
	}
	delta := abs(value - p[idx])
	if delta > coordinateWrap {
		delta -= coordinateWrap
	}
	return float64(delta) <= CoordinateTolerance(p[PointVelocity], c.TimeMs-lastMs, factor)
}
