package features

import (
	"ChartPulse/internal/domain/models"
	"ChartPulse/internal/services/indicators"
)

// Params holds every indicator window the builder computes. Zero values are
// replaced by defaults so a partially configured pipeline still produces
// the full column set.
type Params struct {
	SMAShort  int
	SMAMedium int
	SMALong   int

	EMAFast    int
	EMASlow    int
	MACDSignal int

	BollWindow int
	BollK      float64

	RSIShort  int
	RSIMedium int
	RSILong   int

	StochK int
	StochD int

	ATRWindow int
	VolWindow int // realized + Parkinson volatility

	VWAPWindow      int
	VolumeSMAWindow int
	VolumeOscFast   int
	VolumeOscSlow   int

	LevelWindow int
}

// DefaultParams returns the standard charting parameter set.
func DefaultParams() Params {
	return Params{
		SMAShort: 10, SMAMedium: 20, SMALong: 50,
		EMAFast: 12, EMASlow: 26, MACDSignal: 9,
		BollWindow: 20, BollK: 2,
		RSIShort: 7, RSIMedium: 14, RSILong: 21,
		StochK: 14, StochD: 3,
		ATRWindow: 14, VolWindow: 20,
		VWAPWindow: 20, VolumeSMAWindow: 20,
		VolumeOscFast: 5, VolumeOscSlow: 20,
		LevelWindow: 20,
	}
}

func (p Params) withDefaults() Params {
	d := DefaultParams()
	if p.SMAShort <= 0 {
		p.SMAShort = d.SMAShort
	}
	if p.SMAMedium <= 0 {
		p.SMAMedium = d.SMAMedium
	}
	if p.SMALong <= 0 {
		p.SMALong = d.SMALong
	}
	if p.EMAFast <= 0 {
		p.EMAFast = d.EMAFast
	}
	if p.EMASlow <= 0 {
		p.EMASlow = d.EMASlow
	}
	if p.MACDSignal <= 0 {
		p.MACDSignal = d.MACDSignal
	}
	if p.BollWindow <= 0 {
		p.BollWindow = d.BollWindow
	}
	if p.BollK <= 0 {
		p.BollK = d.BollK
	}
	if p.RSIShort <= 0 {
		p.RSIShort = d.RSIShort
	}
	if p.RSIMedium <= 0 {
		p.RSIMedium = d.RSIMedium
	}
	if p.RSILong <= 0 {
		p.RSILong = d.RSILong
	}
	if p.StochK <= 0 {
		p.StochK = d.StochK
	}
	if p.StochD <= 0 {
		p.StochD = d.StochD
	}
	if p.ATRWindow <= 0 {
		p.ATRWindow = d.ATRWindow
	}
	if p.VolWindow <= 0 {
		p.VolWindow = d.VolWindow
	}
	if p.VWAPWindow <= 0 {
		p.VWAPWindow = d.VWAPWindow
	}
	if p.VolumeSMAWindow <= 0 {
		p.VolumeSMAWindow = d.VolumeSMAWindow
	}
	if p.VolumeOscFast <= 0 {
		p.VolumeOscFast = d.VolumeOscFast
	}
	if p.VolumeOscSlow <= 0 {
		p.VolumeOscSlow = d.VolumeOscSlow
	}
	if p.LevelWindow <= 0 {
		p.LevelWindow = d.LevelWindow
	}
	return p
}

// BuildRows computes every indicator column for one symbol's time-ordered
// bars and returns one FeatureRow per input bar. Warm-up positions carry
// NaN; short input produces rows with all indicators NaN, never an error.
// Pure function of the input: no I/O, no clock, no randomness.
func BuildRows(bars []models.Bar, p Params) []models.FeatureRow {
	if len(bars) == 0 {
		return nil
	}
	p = p.withDefaults()

	closes := models.Closes(bars)
	volumes := models.Volumes(bars)
	highs := models.Series(bars, func(b models.Bar) float64 { return b.High })
	lows := models.Series(bars, func(b models.Bar) float64 { return b.Low })

	smaShort := indicators.SMA(closes, p.SMAShort)
	smaMedium := indicators.SMA(closes, p.SMAMedium)
	smaLong := indicators.SMA(closes, p.SMALong)
	emaFast := indicators.EMA(closes, p.EMAFast)
	emaSlow := indicators.EMA(closes, p.EMASlow)

	bands := indicators.Bollinger(closes, p.BollWindow, p.BollK)
	rsiShort := indicators.RSI(closes, p.RSIShort)
	rsiMedium := indicators.RSI(closes, p.RSIMedium)
	rsiLong := indicators.RSI(closes, p.RSILong)
	macd := indicators.MACD(closes, p.EMAFast, p.EMASlow, p.MACDSignal)
	stoch := indicators.Stochastic(highs, lows, closes, p.StochK, p.StochD)

	atr := indicators.ATR(highs, lows, closes, p.ATRWindow)
	realized := indicators.RealizedVol(closes, p.VolWindow)
	parkinson := indicators.ParkinsonVol(highs, lows, p.VolWindow)

	vwap := indicators.VWAP(highs, lows, closes, volumes, p.VWAPWindow)
	volumeSMA := indicators.SMA(volumes, p.VolumeSMAWindow)
	volumeOsc := indicators.VolumeOscillator(volumes, p.VolumeOscFast, p.VolumeOscSlow)
	levels := indicators.SupportResistance(highs, lows, p.LevelWindow)

	closeLag := indicators.Lag(closes, 1)
	returns := indicators.LogReturns(closes)

	rows := make([]models.FeatureRow, len(bars))
	for i, b := range bars {
		rows[i] = models.FeatureRow{
			Symbol:    b.Symbol,
			Timestamp: b.Timestamp,
			Source:    b.Source,
			Open:      b.Open,
			High:      b.High,
			Low:       b.Low,
			Close:     b.Close,
			Volume:    b.Volume,

			SMA10: models.Float(smaShort[i]),
			SMA20: models.Float(smaMedium[i]),
			SMA50: models.Float(smaLong[i]),
			EMA12: models.Float(emaFast[i]),
			EMA26: models.Float(emaSlow[i]),

			BBUpper:   models.Float(bands.Upper[i]),
			BBMiddle:  models.Float(bands.Middle[i]),
			BBLower:   models.Float(bands.Lower[i]),
			BBSqueeze: models.Float(bands.Squeeze[i]),

			RSI7:  models.Float(rsiShort[i]),
			RSI14: models.Float(rsiMedium[i]),
			RSI21: models.Float(rsiLong[i]),

			MACD:       models.Float(macd.Line[i]),
			MACDSignal: models.Float(macd.Signal[i]),
			MACDHist:   models.Float(macd.Histogram[i]),

			StochK: models.Float(stoch.K[i]),
			StochD: models.Float(stoch.D[i]),

			ATR14:          models.Float(atr[i]),
			RealizedVol20:  models.Float(realized[i]),
			ParkinsonVol20: models.Float(parkinson[i]),

			VWAP20:      models.Float(vwap[i]),
			VolumeSMA20: models.Float(volumeSMA[i]),
			VolumeOsc:   models.Float(volumeOsc[i]),

			SupportLevel:    models.Float(levels.Support[i]),
			ResistanceLevel: models.Float(levels.Resistance[i]),

			CloseLag1: models.Float(closeLag[i]),
			Return1:   models.Float(returns[i]),

			Version: models.FeatureVersion,
		}
	}
	return rows
}

// BuildTail computes rows for the full series but returns only the last n,
// for incremental runs where history before the tail is already persisted.
// Indicators still see the full lookback, so tail values match a full
// recompute exactly.
func BuildTail(bars []models.Bar, p Params, n int) []models.FeatureRow {
	rows := BuildRows(bars, p)
	if n <= 0 || n >= len(rows) {
		return rows
	}
	return rows[len(rows)-n:]
}
