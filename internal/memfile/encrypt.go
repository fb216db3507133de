// seehuhn.de/go/sliprule - stamp slip rule amendments onto PDF files
// Copyright (C) 2026  Jochen Voss <voss@seehuhn.de>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package memfile

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/md5"
	"crypto/rand"
	"crypto/rc4"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/binary"
	"fmt"
	"hash"
)

// Security selects the encryption of a file.  The owner password is
// always "owner".
type Security struct {
	// Cipher is one of "RC4" (revision 3, 128 bit keys), "AESV2"
	// (revision 4) and "AESV3" (revision 6).
	Cipher string

	// UserPassword is the password needed to open the file.
	// Only ASCII passwords are supported.
	UserPassword string
}

const (
	ownerPassword = "owner"
	permissions   = -4 // everything allowed
)

type encrypter struct {
	aes  bool
	r6   bool
	key  []byte
	dict string
}

func newEncrypter(sec *Security, id []byte) *encrypter {
	e := &encrypter{}
	perm := int32(permissions)
	p := uint32(perm)

	switch sec.Cipher {
	case "RC4", "AESV2":
		r := 3
		if sec.Cipher == "AESV2" {
			r = 4
			e.aes = true
		}

		// owner key, Algorithm 3
		sum := md5.Sum(pad(ownerPassword))
		for i := 0; i < 50; i++ {
			sum = md5.Sum(sum[:])
		}
		o := rc4Rounds(sum[:], pad(sec.UserPassword))

		// file key, Algorithm 2
		h := md5.New()
		h.Write(pad(sec.UserPassword))
		h.Write(o)
		h.Write(binary.LittleEndian.AppendUint32(nil, p))
		h.Write(id)
		key := h.Sum(nil)
		for i := 0; i < 50; i++ {
			k := md5.Sum(key)
			key = k[:]
		}
		e.key = key

		// Algorithm 5
		h.Reset()
		h.Write(pad(""))
		h.Write(id)
		u := rc4Rounds(key, h.Sum(nil))
		u = append(u, make([]byte, 16)...)

		if r == 3 {
			e.dict = fmt.Sprintf("<< /Filter /Standard /V 2 /R 3 /Length 128 /O <%x> /U <%x> /P %d >>",
				o, u, permissions)
		} else {
			e.dict = fmt.Sprintf("<< /Filter /Standard /V 4 /R 4 /Length 128"+
				" /CF << /StdCF << /CFM /AESV2 /Length 16 /AuthEvent /DocOpen >> >>"+
				" /StmF /StdCF /StrF /StdCF /O <%x> /U <%x> /P %d >>",
				o, u, permissions)
		}

	case "AESV3":
		e.aes = true
		e.r6 = true
		e.key = random(32)

		// Algorithm 8
		salt := random(16)
		u := append(hash6([]byte(sec.UserPassword), salt[:8], nil), salt...)
		ue := cbcNoPad(hash6([]byte(sec.UserPassword), salt[8:], nil), e.key)

		// Algorithm 9
		salt = random(16)
		o := append(hash6([]byte(ownerPassword), salt[:8], u), salt...)
		oe := cbcNoPad(hash6([]byte(ownerPassword), salt[8:], u), e.key)

		// Algorithm 10
		perms := make([]byte, 16)
		binary.LittleEndian.PutUint32(perms, p)
		copy(perms[4:], []byte{0xFF, 0xFF, 0xFF, 0xFF, 'T', 'a', 'd', 'b'})
		c, _ := aes.NewCipher(e.key)
		c.Encrypt(perms, perms)

		e.dict = fmt.Sprintf("<< /Filter /Standard /V 5 /R 6 /Length 256"+
			" /CF << /StdCF << /CFM /AESV3 /Length 32 /AuthEvent /DocOpen >> >>"+
			" /StmF /StdCF /StrF /StdCF /O <%x> /U <%x> /OE <%x> /UE <%x> /Perms <%x> /P %d >>",
			o, u, oe, ue, perms, permissions)

	default:
		panic("memfile: unknown cipher " + sec.Cipher)
	}
	return e
}

// encrypt encrypts data for storage in object num (generation 0).
func (e *encrypter) encrypt(num int, data []byte) []byte {
	key := e.key
	if !e.r6 {
		h := md5.New()
		h.Write(e.key)
		h.Write([]byte{byte(num), byte(num >> 8), byte(num >> 16), 0, 0})
		if e.aes {
			h.Write([]byte("sAlT"))
		}
		key = h.Sum(nil)
	}

	if !e.aes {
		c, _ := rc4.NewCipher(key)
		out := make([]byte, len(data))
		c.XORKeyStream(out, data)
		return out
	}

	nPad := 16 - len(data)%16
	out := append(random(16), data...)
	for i := 0; i < nPad; i++ {
		out = append(out, byte(nPad))
	}
	c, _ := aes.NewCipher(key)
	cipher.NewCBCEncrypter(c, out[:16]).CryptBlocks(out[16:], out[16:])
	return out
}

var padding = []byte{
	0x28, 0xBF, 0x4E, 0x5E, 0x4E, 0x75, 0x8A, 0x41,
	0x64, 0x00, 0x4E, 0x56, 0xFF, 0xFA, 0x01, 0x08,
	0x2E, 0x2E, 0x00, 0xB6, 0xD0, 0x68, 0x3E, 0x80,
	0x2F, 0x0C, 0xA9, 0xFE, 0x64, 0x53, 0x69, 0x7A,
}

func pad(passwd string) []byte {
	res := make([]byte, 32)
	n := copy(res, passwd)
	copy(res[n:], padding)
	return res
}

// rc4Rounds encrypts data with key, followed by 19 rounds where the key
// bytes are XORed with the round number.
func rc4Rounds(key, data []byte) []byte {
	out := make([]byte, len(data))
	copy(out, data)
	tmp := make([]byte, len(key))
	for i := 0; i <= 19; i++ {
		for j := range tmp {
			tmp[j] = key[j] ^ byte(i)
		}
		c, _ := rc4.NewCipher(tmp)
		c.XORKeyStream(out, out)
	}
	return out
}

// hash6 is the password hash of revision 6 (Algorithm 2.B).
func hash6(passwd, salt, u []byte) []byte {
	k0 := sha256.Sum256(append(append(append([]byte{}, passwd...), salt...), u...))
	k := k0[:]

	var e []byte
	for round := 0; ; round++ {
		k1 := make([]byte, 0, 64*(len(passwd)+len(k)+len(u)))
		for j := 0; j < 64; j++ {
			k1 = append(k1, passwd...)
			k1 = append(k1, k...)
			k1 = append(k1, u...)
		}
		e = cbcNoPadIV(k[:16], k[16:32], k1)

		sum := 0
		for _, b := range e[:16] {
			sum += int(b)
		}
		var h hash.Hash
		switch sum % 3 {
		case 0:
			h = sha256.New()
		case 1:
			h = sha512.New384()
		default:
			h = sha512.New()
		}
		h.Write(e)
		k = h.Sum(nil)

		if round >= 63 && int(e[len(e)-1]) <= round+1-32 {
			break
		}
	}
	return k[:32]
}

func cbcNoPad(key, data []byte) []byte {
	return cbcNoPadIV(key, make([]byte, 16), data)
}

func cbcNoPadIV(key, iv, data []byte) []byte {
	c, _ := aes.NewCipher(key)
	out := make([]byte, len(data))
	cipher.NewCBCEncrypter(c, iv).CryptBlocks(out, data)
	return out
}

func random(n int) []byte {
	buf := make([]byte, n)
	_, err := rand.Read(buf)
	if err != nil {
		panic(err)
	}
	return buf
}
