/*
Package ntag424 implements the host-side EV2 secure-messaging engine for
an NXP NTAG-424 DNA tag: mutual authentication, session-key derivation,
per-command wrapping in plain/MAC/full mode, and the small catalog of
DESFire-native commands the tag exposes over ISO-7816-4 APDUs.

The package never talks to a reader directly. Callers supply a Card
(anything with a Transmit method) — typically a PC/SC connection from
the sibling transport package, or a fake for tests.

# Command Modes

Three per-command security levels, selected either explicitly by the
caller or derived from the comm-mode bits of a file's FileSettings:

	Plain: APDU in the clear, response accepted on SW=9100 or SW=91AF.
	Mac:   request and response carry an 8-byte truncated AES-CMAC.
	Full:  request and response data is AES-CBC encrypted under session
	       keys in addition to the MAC.

# Sessions

AuthenticateEV2First establishes a Session (Kenc, Kmac, TI, command
counter). AuthenticateEV2NonFirst rotates Kenc/Kmac without resetting TI
or the counter. Every secured command consumes exactly one counter
tick on success; any failure — bad status word or MAC mismatch — tears
the session down, matching the DESFire requirement that host and card
counters never be allowed to disagree.

# Access Rights Encoding

The 16-bit access rights value returned by GetFileSettings is organized
(MSB to LSB) as [Read | Write | ReadWrite | ChangeAccessRights] and
carried little-endian in bytes AR1 (ReadWrite|ChangeAccessRights) and
AR2 (Read|Write). Nibble values 0x0-0x4 name a key slot, 0xE means free
access, 0xF means denied.
*/
package ntag424
