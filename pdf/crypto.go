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

package pdf

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/md5"
	"crypto/rand"
	"crypto/rc4"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/binary"
	"errors"
	"fmt"
	"hash"
	"io"

	"github.com/xdg-go/stringprep"
)

// encryption holds the keys of an encrypted file.  Objects read from the
// file are decrypted, and objects added by an [Update] are encrypted
// with the same keys.
type encryption struct {
	// dictNum is the object number of the encryption dictionary,
	// or 0 if the dictionary is stored directly in the trailer.
	dictNum uint32

	sec *stdSecHandler

	strF *cryptFilter // strings
	stmF *cryptFilter // streams
}

// openEncryption reads the encryption dictionary and authenticates with
// the empty user password.  If a non-empty password is needed,
// [ErrEncrypted] is returned.
func (r *Reader) openEncryption(encObj Object) (*encryption, error) {
	res := &encryption{}
	if ref, ok := encObj.(Reference); ok {
		res.dictNum = ref.Number
	}

	enc, err := GetDict(r, encObj)
	if err != nil {
		return nil, err
	}
	if enc == nil {
		return nil, &MalformedFileError{Err: errors.New("missing encryption dictionary")}
	}

	id, err := GetArray(r, r.trailer["ID"])
	if err != nil {
		return nil, err
	}
	var id0 String
	if len(id) == 2 {
		id0, _ = id[0].(String)
	}
	if id0 == nil {
		return nil, &MalformedFileError{Err: errors.New("found Encrypt but no ID")}
	}

	filter, err := GetName(r, enc["Filter"])
	if err != nil {
		return nil, err
	}
	if filter != "Standard" {
		return nil, fmt.Errorf("%w: unsupported security handler %q", ErrEncrypted, filter)
	}

	V, err := GetInt(r, enc["V"])
	if err != nil {
		return nil, err
	}

	var keyBytes int
	switch V {
	case 1:
		cf := &cryptFilter{Cipher: cipherRC4, Length: 40}
		res.stmF = cf
		res.strF = cf
		keyBytes = 5
	case 2, 3:
		cf := &cryptFilter{Cipher: cipherRC4, Length: 40}
		if obj, ok := enc["Length"].(Integer); ok {
			cf.Length = int(obj)
			if cf.Length < 40 || cf.Length > 128 || cf.Length%8 != 0 {
				return nil, &MalformedFileError{
					Err: fmt.Errorf("invalid Length=%d", cf.Length),
				}
			}
		}
		res.stmF = cf
		res.strF = cf
		keyBytes = cf.Length / 8
	case 4, 5:
		CF, _ := enc["CF"].(Dict)
		if name, ok := enc["StmF"].(Name); ok {
			res.stmF, err = getCryptFilter(name, CF)
			if err != nil {
				return nil, &MalformedFileError{Err: fmt.Errorf("StmF: %w", err)}
			}
		}
		if name, ok := enc["StrF"].(Name); ok {
			res.strF, err = getCryptFilter(name, CF)
			if err != nil {
				return nil, &MalformedFileError{Err: fmt.Errorf("StrF: %w", err)}
			}
		}
		if V == 4 {
			keyBytes = 16
		} else {
			keyBytes = 32
		}
	default:
		return nil, &MalformedFileError{Err: fmt.Errorf("invalid V=%d", V)}
	}

	sec, err := openStdSecHandler(enc, keyBytes, []byte(id0))
	if err != nil {
		return nil, &MalformedFileError{
			Err: fmt.Errorf("standard security handler: %w", err),
		}
	}
	err = sec.authenticate()
	if err != nil {
		return nil, err
	}
	res.sec = sec

	return res, nil
}

// decrypt returns a copy of obj, with all strings and stream data
// decrypted.  The object must have been read from the file as the
// indirect object ref.
func (enc *encryption) decrypt(ref Reference, obj Object) (Object, error) {
	return enc.transform(ref, obj, false)
}

// encrypt returns a copy of obj, with all strings and stream data
// encrypted for storage as the indirect object ref.
func (enc *encryption) encrypt(ref Reference, obj Object) (Object, error) {
	return enc.transform(ref, obj, true)
}

func (enc *encryption) transform(ref Reference, obj Object, encrypt bool) (Object, error) {
	switch x := obj.(type) {
	case String:
		if enc.strF == nil {
			return x, nil
		}
		out, err := enc.crypt(enc.strF, ref, []byte(x), encrypt)
		if err != nil {
			return nil, err
		}
		return String(out), nil

	case Array:
		res := make(Array, len(x))
		for i, elem := range x {
			val, err := enc.transform(ref, elem, encrypt)
			if err != nil {
				return nil, err
			}
			res[i] = val
		}
		return res, nil

	case Dict:
		return enc.transformDict(ref, x, encrypt)

	case *Stream:
		dict, err := enc.transformDict(ref, x.Dict, encrypt)
		if err != nil {
			return nil, err
		}
		if !enc.streamIsEncrypted(x.Dict) {
			return &Stream{Dict: dict, R: x.R}, nil
		}
		data, err := io.ReadAll(x.R)
		if err != nil {
			return nil, err
		}
		data, err = enc.crypt(enc.stmF, ref, data, encrypt)
		if err != nil {
			return nil, &MalformedFileError{Err: fmt.Errorf("stream %s: %w", ref, err)}
		}
		dict["Length"] = Integer(len(data))
		return &Stream{Dict: dict, R: bytes.NewReader(data)}, nil

	default:
		return obj, nil
	}
}

func (enc *encryption) transformDict(ref Reference, dict Dict, encrypt bool) (Dict, error) {
	if dict == nil {
		return nil, nil
	}
	res := make(Dict, len(dict))
	for key, elem := range dict {
		val, err := enc.transform(ref, elem, encrypt)
		if err != nil {
			return nil, err
		}
		res[key] = val
	}
	return res, nil
}

// streamIsEncrypted reports whether the data of a stream with the given
// dictionary is encrypted using the default stream filter.
func (enc *encryption) streamIsEncrypted(dict Dict) bool {
	if enc.stmF == nil {
		return false
	}
	switch dict["Type"] {
	case Name("XRef"):
		return false
	case Name("Metadata"):
		if enc.sec.unencryptedMetaData {
			return false
		}
	}
	switch f := dict["Filter"].(type) {
	case Name:
		return f != "Crypt"
	case Array:
		return len(f) == 0 || f[0] != Name("Crypt")
	}
	return true
}

// crypt encrypts or decrypts buf, using Algorithm 1 of the PDF
// specification.  The input is not modified.
func (enc *encryption) crypt(cf *cryptFilter, ref Reference, buf []byte, encrypt bool) ([]byte, error) {
	key := enc.sec.keyForRef(cf, ref)
	switch cf.Cipher {
	case cipherAES:
		c, err := aes.NewCipher(key)
		if err != nil {
			return nil, err
		}
		if encrypt {
			return aesEncrypt(c, buf)
		}
		return aesDecrypt(c, buf)
	case cipherRC4:
		c, err := rc4.NewCipher(key)
		if err != nil {
			return nil, err
		}
		out := make([]byte, len(buf))
		c.XORKeyStream(out, buf)
		return out, nil
	default:
		return nil, fmt.Errorf("unknown cipher %s", cf.Cipher)
	}
}

// aesEncrypt encrypts buf in CBC mode with a random IV.
// The result consists of the IV followed by the padded cipher text.
func aesEncrypt(c cipher.Block, buf []byte) ([]byte, error) {
	n := len(buf)
	nPad := 16 - n%16
	out := make([]byte, 16+n+nPad)

	iv := out[:16]
	_, err := io.ReadFull(rand.Reader, iv)
	if err != nil {
		return nil, err
	}

	copy(out[16:], buf)
	for i := 16 + n; i < len(out); i++ {
		out[i] = byte(nPad)
	}
	cbc := cipher.NewCBCEncrypter(c, iv)
	cbc.CryptBlocks(out[16:], out[16:])
	return out, nil
}

func aesDecrypt(c cipher.Block, buf []byte) ([]byte, error) {
	if len(buf) == 0 {
		return nil, nil
	}
	if len(buf) < 32 || len(buf)%16 != 0 {
		return nil, errCorrupted
	}
	out := make([]byte, len(buf)-16)
	cbc := cipher.NewCBCDecrypter(c, buf[:16])
	cbc.CryptBlocks(out, buf[16:])

	nPad := int(out[len(out)-1])
	if nPad < 1 || nPad > 16 {
		return nil, errCorrupted
	}
	return out[:len(out)-nPad], nil
}

var errCorrupted = errors.New("corrupted ciphertext")

// stdSecHandler represents the PDF standard security handler.  The
// "user password" is used to access the contents of the document, the
// "owner password" controls additional permissions.
type stdSecHandler struct {
	// R is the revision of the standard security handler.
	R int

	// ID is the first element of the /ID array in the trailer.
	ID []byte

	O, U     []byte
	OE, UE   []byte
	Perms    []byte
	P        uint32
	keyBytes int
	key      []byte

	// unencryptedMetaData is the negation of /EncryptMetadata.
	unencryptedMetaData bool
}

func openStdSecHandler(enc Dict, keyBytes int, ID []byte) (*stdSecHandler, error) {
	R, ok := enc["R"].(Integer)
	if !ok || R < 2 || R == 5 || R > 6 {
		return nil, errors.New("invalid Encrypt.R")
	}
	ouLength := 32
	if R == 6 {
		ouLength = 48
	}

	O, ok := enc["O"].(String)
	if !ok || len(O) < ouLength {
		return nil, errors.New("invalid Encrypt.O")
	}
	U, ok := enc["U"].(String)
	if !ok || len(U) < ouLength {
		return nil, errors.New("invalid Encrypt.U")
	}
	P, ok := enc["P"].(Integer)
	if !ok {
		return nil, errors.New("invalid Encrypt.P")
	}

	emd := true
	if obj, ok := enc["EncryptMetadata"].(Bool); ok && R >= 4 {
		emd = bool(obj)
	}

	sec := &stdSecHandler{
		R:        int(R),
		ID:       ID,
		O:        []byte(O[:ouLength]),
		U:        []byte(U[:ouLength]),
		P:        uint32(P),
		keyBytes: keyBytes,

		unencryptedMetaData: !emd,
	}

	if R == 6 {
		OE, ok := enc["OE"].(String)
		if !ok || len(OE) != 32 {
			return nil, errors.New("invalid Encrypt.OE")
		}
		sec.OE = []byte(OE)

		UE, ok := enc["UE"].(String)
		if !ok || len(UE) != 32 {
			return nil, errors.New("invalid Encrypt.UE")
		}
		sec.UE = []byte(UE)

		Perms, ok := enc["Perms"].(String)
		if !ok || len(Perms) != 16 {
			return nil, errors.New("invalid Encrypt.Perms")
		}
		sec.Perms = []byte(Perms)
	}

	return sec, nil
}

// authenticate tries the empty password, first as the owner password and
// then as the user password.  On success, the file encryption key is
// stored in sec.key.
func (sec *stdSecHandler) authenticate() error {
	if sec.R < 6 {
		padded := padPasswd(nil)
		if sec.authenticateOwner(padded) == nil {
			return nil
		}
		if sec.authenticateUser(padded) == nil {
			return nil
		}
	} else {
		prepared, err := utf8Passwd("")
		if err != nil {
			return err
		}
		if sec.authenticateOwner6(prepared) == nil {
			return nil
		}
		if sec.authenticateUser6(prepared) == nil {
			return nil
		}
	}
	return fmt.Errorf("%w: user password required", ErrEncrypted)
}

func (sec *stdSecHandler) keyForRef(cf *cryptFilter, ref Reference) []byte {
	if sec.R >= 6 {
		return sec.key
	}

	h := md5.New()
	h.Write(sec.key)
	num := ref.Number
	gen := ref.Generation
	h.Write([]byte{
		byte(num), byte(num >> 8), byte(num >> 16),
		byte(gen), byte(gen >> 8)})
	if cf.Cipher == cipherAES {
		h.Write([]byte("sAlT"))
	}
	l := min(sec.keyBytes+5, 16)
	return h.Sum(nil)[:l]
}

// Algorithm 2: compute the file encryption key for R <= 4.
func (sec *stdSecHandler) computeFileEncryptionKey(paddedUserPwd []byte) []byte {
	h := md5.New()
	h.Write(paddedUserPwd)
	h.Write(sec.O)
	h.Write([]byte{
		byte(sec.P), byte(sec.P >> 8), byte(sec.P >> 16), byte(sec.P >> 24)})
	h.Write(sec.ID)
	if sec.unencryptedMetaData && sec.R >= 4 {
		h.Write([]byte{255, 255, 255, 255})
	}
	key := h.Sum(nil)

	if sec.R >= 3 {
		for i := 0; i < 50; i++ {
			h.Reset()
			h.Write(key[:sec.keyBytes])
			key = h.Sum(key[:0])
		}
	}

	return key[:sec.keyBytes]
}

// Algorithm 4/5: compute U.
func (sec *stdSecHandler) computeU(fileEncryptionKey []byte) []byte {
	U := make([]byte, 32)
	switch sec.R {
	case 2:
		c, _ := rc4.NewCipher(fileEncryptionKey)
		c.XORKeyStream(U, passwdPad)
	default:
		h := md5.New()
		h.Write(passwdPad)
		h.Write(sec.ID)
		U = h.Sum(U[:0])
		c, _ := rc4.NewCipher(fileEncryptionKey)
		c.XORKeyStream(U, U)

		tmpKey := make([]byte, len(fileEncryptionKey))
		for i := byte(1); i <= 19; i++ {
			for j := range tmpKey {
				tmpKey[j] = fileEncryptionKey[j] ^ i
			}
			c, _ = rc4.NewCipher(tmpKey)
			c.XORKeyStream(U, U)
		}
		// only the first 16 bytes are significant
		U = append(U[:16], zero16...)
	}
	return U
}

// Algorithm 6: authenticate the user password (revision 4 and earlier).
func (sec *stdSecHandler) authenticateUser(paddedUserPwd []byte) error {
	key := sec.computeFileEncryptionKey(paddedUserPwd)
	U := sec.computeU(key)
	n := 32
	if sec.R >= 3 {
		n = 16
	}
	if !bytes.Equal(U[:n], sec.U[:n]) {
		return errWrongPassword
	}
	sec.key = key
	return nil
}

// Algorithm 7: authenticate the owner password (revision 4 and earlier).
func (sec *stdSecHandler) authenticateOwner(paddedOwnerPwd []byte) error {
	h := md5.New()
	h.Write(paddedOwnerPwd)
	sum := h.Sum(nil)
	if sec.R >= 3 {
		for i := 0; i < 50; i++ {
			h.Reset()
			h.Write(sum[:sec.keyBytes])
			sum = h.Sum(sum[:0])
		}
	}
	key := sum[:sec.keyBytes]

	buf := make([]byte, 32)
	copy(buf, sec.O)
	if sec.R == 2 {
		c, _ := rc4.NewCipher(key)
		c.XORKeyStream(buf, buf)
	} else {
		tmpKey := make([]byte, len(key))
		for i := 19; i >= 0; i-- {
			for j := range tmpKey {
				tmpKey[j] = key[j] ^ byte(i)
			}
			c, _ := rc4.NewCipher(tmpKey)
			c.XORKeyStream(buf, buf)
		}
	}

	return sec.authenticateUser(buf)
}

// Algorithm 11: authenticate the user password (revision 6).
func (sec *stdSecHandler) authenticateUser6(utf8Pwd []byte) error {
	hash := slowHash(utf8Pwd, sec.U[32:40], nil)
	if !bytes.Equal(hash, sec.U[:32]) {
		return errWrongPassword
	}

	key := slowHash(utf8Pwd, sec.U[40:48], nil)
	return sec.unwrapKey(key, sec.UE)
}

// Algorithm 12: authenticate the owner password (revision 6).
func (sec *stdSecHandler) authenticateOwner6(utf8Pwd []byte) error {
	hash := slowHash(utf8Pwd, sec.O[32:40], sec.U)
	if !bytes.Equal(hash, sec.O[:32]) {
		return errWrongPassword
	}

	key := slowHash(utf8Pwd, sec.O[40:48], sec.U)
	return sec.unwrapKey(key, sec.OE)
}

// unwrapKey decrypts the file encryption key from /UE or /OE and checks
// it against /Perms.
func (sec *stdSecHandler) unwrapKey(key, wrapped []byte) error {
	c, _ := aes.NewCipher(key)
	cbc := cipher.NewCBCDecrypter(c, zero16)
	fileEncryptionKey := make([]byte, 32)
	cbc.CryptBlocks(fileEncryptionKey, wrapped)

	buf := make([]byte, 16)
	c, _ = aes.NewCipher(fileEncryptionKey)
	c.Decrypt(buf, sec.Perms)
	if !bytes.Equal(buf[9:12], []byte("adb")) {
		return errWrongPassword
	}
	if binary.LittleEndian.Uint32(buf[:4]) != sec.P {
		return errWrongPassword
	}

	sec.key = fileEncryptionKey
	return nil
}

var errWrongPassword = errors.New("wrong password")

// Algorithm 2.B: compute a hash (revision 6).
func slowHash(passwd, salt, U []byte) []byte {
	h := sha256.New()
	h.Write(passwd)
	h.Write(salt)
	h.Write(U)
	K := h.Sum(nil)

	K1 := make([]byte, 64*(len(passwd)+64+len(U)))
	for i := 0; i < 64 || K1[len(K1)-1] > byte(i-32); i++ {
		K1 = K1[:0]
		for j := 0; j < 64; j++ {
			K1 = append(K1, passwd...)
			K1 = append(K1, K...)
			K1 = append(K1, U...)
		}

		c, _ := aes.NewCipher(K[:16])
		cbc := cipher.NewCBCEncrypter(c, K[16:32])
		cbc.CryptBlocks(K1, K1)

		// (a*256)%3 == a%3, so the bytes can be summed
		var rem int
		for _, b := range K1[:16] {
			rem += int(b)
		}

		var h hash.Hash
		switch rem % 3 {
		case 0:
			h = sha256.New()
		case 1:
			h = sha512.New384()
		case 2:
			h = sha512.New()
		}
		h.Write(K1)
		K = h.Sum(K[:0])
	}

	return K[:32]
}

// utf8Passwd prepares a password for revision 6 of the standard
// security handler.
func utf8Passwd(passwd string) ([]byte, error) {
	prepped, err := stringprep.SASLprep.Prepare(passwd)
	if err != nil {
		return nil, fmt.Errorf("invalid password: %w", err)
	}
	buf := []byte(prepped)
	if len(buf) > 127 {
		buf = buf[:127]
	}
	return buf, nil
}

// padPasswd pads a password to 32 bytes, for revision 4 and earlier.
func padPasswd(passwd []byte) []byte {
	padded := make([]byte, 32)
	n := copy(padded, passwd)
	copy(padded[n:], passwdPad)
	return padded
}

var passwdPad = []byte{
	0x28, 0xBF, 0x4E, 0x5E, 0x4E, 0x75, 0x8A, 0x41,
	0x64, 0x00, 0x4E, 0x56, 0xFF, 0xFA, 0x01, 0x08,
	0x2E, 0x2E, 0x00, 0xB6, 0xD0, 0x68, 0x3E, 0x80,
	0x2F, 0x0C, 0xA9, 0xFE, 0x64, 0x53, 0x69, 0x7A,
}

var zero16 = make([]byte, 16)

type cryptFilter struct {
	Cipher cipherType

	// Length is the key length in bits.
	Length int
}

func getCryptFilter(name Name, CF Dict) (*cryptFilter, error) {
	if name == "Identity" {
		return nil, nil
	}
	cfDict, ok := CF[name].(Dict)
	if !ok {
		return nil, fmt.Errorf("unknown crypt filter %s", name)
	}

	res := &cryptFilter{}
	switch cfDict["CFM"] {
	case Name("V2"):
		res.Cipher = cipherRC4
		res.Length = 128
		if l, ok := cfDict["Length"].(Integer); ok && l >= 5 && l <= 16 {
			res.Length = 8 * int(l)
		}
	case Name("AESV2"):
		res.Cipher = cipherAES
		res.Length = 128
	case Name("AESV3"):
		res.Cipher = cipherAES
		res.Length = 256
	default:
		return nil, fmt.Errorf("unknown crypt filter method %s", Format(cfDict["CFM"]))
	}
	return res, nil
}

// cipherType denotes the encryption algorithm of a crypt filter.
type cipherType int

const (
	cipherRC4 cipherType = iota + 1
	cipherAES
)

func (c cipherType) String() string {
	switch c {
	case cipherRC4:
		return "RC4"
	case cipherAES:
		return "AES"
	default:
		return fmt.Sprintf("cipher#%d", int(c))
	}
}
