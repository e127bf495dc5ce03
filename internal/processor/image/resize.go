package image

// TargetSize computes output dimensions for a w x h source bounded by
// maxW/maxH (0 means unbounded). With keepAspect the smaller scale factor
// wins and the other side is floored. Without upscale the source size is
// an upper bound. Sides are never smaller than 1 px.
func TargetSize(w, h, maxW, maxH int, keepAspect, upscale bool) (int, int) {
	if w <= 0 || h <= 0 || (maxW <= 0 && maxH <= 0) {
		return w, h
	}

	var nw, nh int64
	W, H := int64(w), int64(h)
	mw, mh := int64(maxW), int64(maxH)

	if keepAspect {
		switch {
		case mw > 0 && mh > 0:
			if mw*H <= mh*W {
				nw, nh = mw, H*mw/W
			} else {
				nw, nh = W*mh/H, mh
			}
		case mw > 0:
			nw, nh = mw, H*mw/W
		default:
			nw, nh = W*mh/H, mh
		}

		if !upscale && nw > W {
			return w, h
		}
	} else {
		nw, nh = W, H
		if mw > 0 {
			nw = mw
		}
		if mh > 0 {
			nh = mh
		}
		if !upscale {
			nw, nh = min(nw, W), min(nh, H)
		}
	}

	return int(max(nw, 1)), int(max(nh, 1))
}
