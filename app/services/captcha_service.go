package services

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/wenlng/go-captcha/v2/rotate"
)

// CaptchaService gates the admin login behind a rotate captcha.
// Generate returns a challenge id and two images; the page submits the id with the
// angle the user applied. A challenge is consumed by its first verification.
type CaptchaService interface {
	GenerateRotate(ctx context.Context) (*RotateChallenge, error)
	VerifyRotate(ctx context.Context, challengeID string, userAngle float64) bool
}

type RotateChallenge struct {
	ID                string
	MasterImageBase64 string
	ThumbImageBase64  string
}

// ChallengeStore keeps target angles until they are verified or expire
type ChallengeStore interface {
	Put(ctx context.Context, id string, angle int, ttl time.Duration) error
	// Take returns and removes the angle
	Take(ctx context.Context, id string) (int, bool, error)
}

type captchaServiceImpl struct {
	rotator rotate.Captcha
	store   ChallengeStore
	ttl     time.Duration
	padding int
}

// NewCaptchaServiceRotate constructs a rotate captcha over the given store.
// padding is the accepted angle difference in degrees.
func NewCaptchaServiceRotate(store ChallengeStore, ttl time.Duration, padding int, imgSizePx int) (CaptchaService, error) {
	if store == nil {
		return nil, errors.New("challenge store is required")
	}
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	if imgSizePx <= 0 {
		imgSizePx = 220
	}

	builder := rotate.NewBuilder(rotate.WithImageSquareSize(imgSizePx))
	builder.SetResources(rotate.WithImages(generateRotateBackgrounds(3, imgSizePx)))

	return &captchaServiceImpl{
		rotator: builder.Make(),
		store:   store,
		ttl:     ttl,
		padding: padding,
	}, nil
}

func (s *captchaServiceImpl) GenerateRotate(ctx context.Context) (*RotateChallenge, error) {
	captData, err := s.rotator.Generate()
	if err != nil {
		return nil, fmt.Errorf("failed to generate captcha: %w", err)
	}
	block := captData.GetData()
	if block == nil {
		return nil, errors.New("captcha generated without data")
	}

	masterB64, err := captData.GetMasterImage().ToBase64()
	if err != nil {
		return nil, err
	}
	thumbB64, err := captData.GetThumbImage().ToBase64()
	if err != nil {
		return nil, err
	}

	id := uuid.New().String()
	if err := s.store.Put(ctx, id, block.Angle, s.ttl); err != nil {
		return nil, fmt.Errorf("failed to store captcha challenge: %w", err)
	}

	return &RotateChallenge{
		ID:                id,
		MasterImageBase64: masterB64,
		ThumbImageBase64:  thumbB64,
	}, nil
}

func (s *captchaServiceImpl) VerifyRotate(ctx context.Context, challengeID string, userAngle float64) bool {
	if challengeID == "" {
		return false
	}
	target, ok, err := s.store.Take(ctx, challengeID)
	if err != nil || !ok {
		return false
	}
	return rotate.Validate(int(math.Round(userAngle)), target, s.padding)
}

// MemoryChallengeStore is a process-local ChallengeStore
type MemoryChallengeStore struct {
	mu sync.Mutex
	m  map[string]memoryChallenge
}

type memoryChallenge struct {
	angle     int
	expiresAt time.Time
}

func NewMemoryChallengeStore() *MemoryChallengeStore {
	return &MemoryChallengeStore{m: make(map[string]memoryChallenge)}
}

func (s *MemoryChallengeStore) Put(_ context.Context, id string, angle int, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for k, v := range s.m {
		if now.After(v.expiresAt) {
			delete(s.m, k)
		}
	}
	s.m[id] = memoryChallenge{angle: angle, expiresAt: now.Add(ttl)}
	return nil
}

func (s *MemoryChallengeStore) Take(_ context.Context, id string) (int, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.m[id]
	if !ok {
		return 0, false, nil
	}
	delete(s.m, id)
	if time.Now().After(c.expiresAt) {
		return 0, false, nil
	}
	return c.angle, true, nil
}

// RedisChallengeStore shares challenges between instances
type RedisChallengeStore struct {
	client *redis.Client
	prefix string
}

func NewRedisChallengeStore(client *redis.Client, prefix string) *RedisChallengeStore {
	return &RedisChallengeStore{client: client, prefix: prefix + "captcha:"}
}

func (s *RedisChallengeStore) Put(ctx context.Context, id string, angle int, ttl time.Duration) error {
	return s.client.Set(ctx, s.prefix+id, angle, ttl).Err()
}

func (s *RedisChallengeStore) Take(ctx context.Context, id string) (int, bool, error) {
	val, err := s.client.GetDel(ctx, s.prefix+id).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	angle, err := strconv.Atoi(val)
	if err != nil {
		return 0, false, fmt.Errorf("corrupt captcha challenge: %w", err)
	}
	return angle, true, nil
}

func generateRotateBackgrounds(n int, size int) []image.Image {
	if n <= 0 {
		n = 1
	}
	imgs := make([]image.Image, 0, n)
	for i := 0; i < n; i++ {
		imgs = append(imgs, newGradientImage(size))
	}
	return imgs
}

// newGradientImage draws a radial gradient with light noise and two bands
func newGradientImage(size int) image.Image {
	rgba := image.NewRGBA(image.Rect(0, 0, size, size))
	half := float64(size) / 2
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			dist := math.Hypot(float64(x)-half, float64(y)-half) / half
			if dist > 1 {
				dist = 1
			}
			base := uint8(210 - int(140*dist))
			noise := uint8(rand.Intn(24))
			rgba.Set(x, y, color.RGBA{R: base / 2, G: base + noise/4, B: 255 - base/3, A: 255})
		}
	}
	band := func(x, y, w, h int, c color.RGBA) {
		draw.Draw(rgba, image.Rect(x, y, x+w, y+h), &image.Uniform{C: c}, image.Point{}, draw.Over)
	}
	band(size/8, size/6, size/2, size/14, color.RGBA{R: 255, G: 255, B: 255, A: 40})
	band(size/3, size*2/3, size/2, size/12, color.RGBA{A: 30})
	return rgba
}
