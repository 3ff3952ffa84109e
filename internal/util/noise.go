package util

import (
	"github.com/aquilax/go-perlin"
	"github.com/ojrac/opensimplex-go"
)

// HeightNoise генерирует многооктавный шум Перлина для поля высот
type HeightNoise struct {
	p     *perlin.Perlin
	scale float64
}

// NewHeightNoise создаёт генератор шума высот.
// persistence задаёт, во сколько раз уменьшается амплитуда каждой следующей октавы.
func NewHeightNoise(seed int64, octaves int, persistence, scale float64) *HeightNoise {
	alpha := 2.0 // Сглаживание шума
	if persistence > 0 {
		alpha = 1 / persistence
	}
	beta := 2.0 // Частота шума
	if scale <= 0 {
		scale = 1
	}
	return &HeightNoise{
		p:     perlin.NewPerlin(alpha, beta, int32(octaves), seed),
		scale: scale,
	}
}

// At возвращает значение шума для колонки (x, y), примерно в диапазоне -1..1
func (h *HeightNoise) At(x, y int) float64 {
	return h.p.Noise2D(float64(x)/h.scale, float64(y)/h.scale)
}

// CaveNoise объединяет два независимых поля OpenSimplex: основное и детализирующее
type CaveNoise struct {
	primary opensimplex.Noise
	detail  opensimplex.Noise
}

// Частоты полей пещер (делители координат)
const (
	cavePrimaryScale = 24.0
	caveDetailScale  = 8.0
)

// NewCaveNoise создаёт поля пещер из сида мира
func NewCaveNoise(seed int64) *CaveNoise {
	return &CaveNoise{
		primary: opensimplex.New(seed + 300),
		detail:  opensimplex.New(seed + 400),
	}
}

// Density возвращает комбинированное значение плотности пещер в точке
func (c *CaveNoise) Density(x, y, z int) float64 {
	fx, fy, fz := float64(x), float64(y), float64(z)
	p := c.primary.Eval3(fx/cavePrimaryScale, fy/cavePrimaryScale, fz/cavePrimaryScale)
	d := c.detail.Eval3(fx/caveDetailScale, fy/caveDetailScale, fz/caveDetailScale)
	return 0.75*p + 0.25*d
}
