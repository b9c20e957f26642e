package server

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// RateLimiter 按 IP 限制建连速率，超限后封禁一段时间
type RateLimiter struct {
	mu       sync.Mutex
	requests map[string]*clientRate

	// 配置
	perSecond   rate.Limit
	secondBurst int
	perMinute   rate.Limit
	minuteBurst int
	banDuration time.Duration
	now         func() time.Time
}

// clientRate 客户端速率记录
type clientRate struct {
	second      *rate.Limiter
	minute      *rate.Limiter
	lastSeen    time.Time
	bannedUntil time.Time
}

// NewRateLimiter 创建速率限制器
func NewRateLimiter(maxPerSecond, maxPerMinute int, banDuration time.Duration) *RateLimiter {
	return &RateLimiter{
		requests:    make(map[string]*clientRate),
		perSecond:   rate.Limit(maxPerSecond),
		secondBurst: maxPerSecond,
		perMinute:   rate.Limit(float64(maxPerMinute) / 60),
		minuteBurst: maxPerMinute,
		banDuration: banDuration,
		now:         time.Now,
	}
}

// Allow 检查是否允许请求
func (rl *RateLimiter) Allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	cr, ok := rl.requests[ip]
	if !ok {
		cr = &clientRate{
			second: rate.NewLimiter(rl.perSecond, rl.secondBurst),
			minute: rate.NewLimiter(rl.perMinute, rl.minuteBurst),
		}
		rl.requests[ip] = cr
	}
	cr.lastSeen = now

	// 检查是否被封禁
	if now.Before(cr.bannedUntil) {
		return false
	}

	if !cr.second.AllowN(now, 1) || !cr.minute.AllowN(now, 1) {
		cr.bannedUntil = now.Add(rl.banDuration)
		log.Warn().Str("ip", ip).Dur("ban", rl.banDuration).Msg("⚠️ IP 请求过于频繁，暂时封禁")
		return false
	}
	return true
}

// IsBanned 检查 IP 是否被封禁
func (rl *RateLimiter) IsBanned(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cr, ok := rl.requests[ip]
	return ok && rl.now().Before(cr.bannedUntil)
}

// Cleanup 删除长时间没有请求且未被封禁的记录
func (rl *RateLimiter) Cleanup(idle time.Duration) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	n := 0
	for ip, cr := range rl.requests {
		if now.Sub(cr.lastSeen) > idle && now.After(cr.bannedUntil) {
			delete(rl.requests, ip)
			n++
		}
	}
	return n
}

// Len 记录数
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.requests)
}

// --- 来源验证 ---

// OriginChecker 来源验证器
type OriginChecker struct {
	allowedOrigins map[string]bool
	allowAll       bool
}

// NewOriginChecker 创建来源验证器
func NewOriginChecker(origins []string) *OriginChecker {
	oc := &OriginChecker{
		allowedOrigins: make(map[string]bool),
	}

	for _, origin := range origins {
		if origin == "*" {
			oc.allowAll = true
			return oc
		}
		oc.allowedOrigins[strings.ToLower(origin)] = true
	}

	return oc
}

// Check 检查来源是否允许
func (oc *OriginChecker) Check(r *http.Request) bool {
	if oc.allowAll {
		return true
	}

	origin := r.Header.Get("Origin")
	if origin == "" {
		// 没有 Origin 头，可能是同源请求或本地客户端
		return true
	}

	return oc.allowedOrigins[strings.ToLower(origin)]
}

// GetClientIP 获取客户端真实 IP
func GetClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		// 取第一个 IP（最原始的客户端）
		first, _, _ := strings.Cut(forwarded, ",")
		return strings.TrimSpace(first)
	}

	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// --- 消息速率限制 ---

// MessageRateLimiter 已连接客户端的令牌桶消息限速
// 令牌不足一半时提示放慢，耗尽时丢弃消息并记一次警告
type MessageRateLimiter struct {
	mu     sync.Mutex
	limits map[string]*messageRate

	perSecond   rate.Limit
	burst       int
	maxWarnings int
}

type messageRate struct {
	limiter  *rate.Limiter
	warnings int
}

// NewMessageRateLimiter 创建消息速率限制器
func NewMessageRateLimiter(maxPerSecond, burst, maxWarnings int) *MessageRateLimiter {
	if burst < 1 {
		burst = max(maxPerSecond, 1)
	}
	return &MessageRateLimiter{
		limits:      make(map[string]*messageRate),
		perSecond:   rate.Limit(maxPerSecond),
		burst:       burst,
		maxWarnings: maxWarnings,
	}
}

// AllowMessage 检查是否允许处理消息
func (ml *MessageRateLimiter) AllowMessage(clientID string) (allowed bool, warning bool) {
	ml.mu.Lock()
	defer ml.mu.Unlock()

	mr, ok := ml.limits[clientID]
	if !ok {
		mr = &messageRate{limiter: rate.NewLimiter(ml.perSecond, ml.burst)}
		ml.limits[clientID] = mr
	}

	if !mr.limiter.Allow() {
		mr.warnings++
		return false, true
	}
	return true, mr.limiter.Tokens() < float64(ml.burst)/2
}

// GetWarningCount 获取警告次数
func (ml *MessageRateLimiter) GetWarningCount(clientID string) int {
	ml.mu.Lock()
	defer ml.mu.Unlock()

	if mr, ok := ml.limits[clientID]; ok {
		return mr.warnings
	}
	return 0
}

// ShouldDisconnect 警告次数超过上限
func (ml *MessageRateLimiter) ShouldDisconnect(clientID string) bool {
	return ml.GetWarningCount(clientID) > ml.maxWarnings
}

// RemoveClient 移除客户端记录
func (ml *MessageRateLimiter) RemoveClient(clientID string) {
	ml.mu.Lock()
	defer ml.mu.Unlock()
	delete(ml.limits, clientID)
}
