// Package pkg, projede paylaşılan utility'leri barındırır.
// Bu dosya domain-level error tanımlarını içerir.
//
// Go'da error'lar basit değerlerdir (string taşıyan struct'lar).
// errors.New() ile sabit error değişkenleri tanımlarız.
// Böylece error karşılaştırması string yerine referans ile yapılır:
//
//	if errors.Is(err, pkg.ErrNotConnected) { ... }
//
// Bu, typo'ya açık string karşılaştırmasından çok daha güvenlidir.
package pkg

import "errors"

// Domain-level error'lar.
// Session katmanı bu error'ları kullanıcıya gösterilecek alert
// mesajlarına map'ler. Core katmanları bunları döner, session yakalar.
var (
	ErrNotFound     = errors.New("not found")
	ErrBadRequest   = errors.New("bad request")
	ErrNotConnected = errors.New("hub not connected")
	ErrInternal     = errors.New("internal error")

	// ErrMediaUnavailable, mikrofon/kamera edinimi başarısız olduğunda döner.
	// "Arama başlatılamıyor" sınıfı — kullanıcıya gösterilir, retry edilmez.
	ErrMediaUnavailable = errors.New("media unavailable")

	// ErrCallActive, zaten aktif bir arama varken yeni arama denendiğinde döner.
	// Lokal tarafta aynı anda en fazla bir aktif arama olabilir.
	ErrCallActive = errors.New("call already active")

	// ErrSessionClosed, kapatılmış bir peer session üzerinde işlem denendiğinde döner.
	ErrSessionClosed = errors.New("peer session closed")
)
