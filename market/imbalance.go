package market

// Imbalance calculates the imbalance between bid and ask volumes
// Imbalance = (BidVol - AskVol) / (BidVol + AskVol)
func Imbalance(bidVolume float64, askVolume float64) float64 {
	totalVolume := bidVolume + askVolume
	if totalVolume == 0 {
		return 0
	}
	return (bidVolume - askVolume) / totalVolume
}

// TopImbalance calculates imbalance over the top N levels of each side.
func TopImbalance(bids, asks []Level, levels int) float64 {
	if levels <= 0 {
		return 0
	}
	bidVolume := 0.0
	askVolume := 0.0
	for i, l := range bids {
		if i >= levels {
			break
		}
		bidVolume += l.Sz
	}
	for i, l := range asks {
		if i >= levels {
			break
		}
		askVolume += l.Sz
	}
	return Imbalance(bidVolume, askVolume)
}
