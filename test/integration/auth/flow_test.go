// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Memberd Contributors

//go:build integration

package auth_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
)

var emailCounter atomic.Int64

// uniqueEmail returns a fresh address so specs stay independent under
// randomized ordering.
func uniqueEmail() string {
	return fmt.Sprintf("member%d@example.com", emailCounter.Add(1))
}

func postJSON(path string, body map[string]any, cookies ...*http.Cookie) *http.Response {
	GinkgoHelper()

	payload, err := json.Marshal(body)
	Expect(err).NotTo(HaveOccurred())

	req, err := http.NewRequest(http.MethodPost, env.baseURL+path, bytes.NewReader(payload))
	Expect(err).NotTo(HaveOccurred())
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}

	resp, err := http.DefaultClient.Do(req)
	Expect(err).NotTo(HaveOccurred())
	DeferCleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decodeBody(resp *http.Response) map[string]any {
	GinkgoHelper()

	var body map[string]any
	Expect(json.NewDecoder(resp.Body).Decode(&body)).To(Succeed())
	return body
}

func refreshCookie(resp *http.Response) *http.Cookie {
	GinkgoHelper()

	for _, c := range resp.Cookies() {
		if c.Name == "refreshToken" {
			return c
		}
	}
	Fail("response has no refreshToken cookie")
	return nil
}

func signUp(email, password, name string) {
	GinkgoHelper()

	resp := postJSON("/auth/signup", map[string]any{
		"email":    email,
		"password": password,
		"name":     name,
	})
	Expect(resp.StatusCode).To(Equal(http.StatusCreated))
	Expect(resp.Header.Get("Location")).To(HavePrefix("/members/"))

	body := decodeBody(resp)
	Expect(body["id"]).NotTo(BeEmpty())
	Expect(body["email"]).To(Equal(email))
	Expect(body["name"]).To(Equal(name))
}

func logIn(email, password string) *http.Response {
	GinkgoHelper()

	return postJSON("/auth/login", map[string]any{
		"email":    email,
		"password": password,
	})
}

var _ = Describe("member authentication", func() {
	Describe("signup and login", func() {
		It("signs a member up and logs them in", func() {
			email := uniqueEmail()
			signUp(email, "correct horse battery", "Alice")

			resp := logIn(email, "correct horse battery")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(resp.Header.Get("Authorization")).To(HavePrefix("Bearer "))

			cookie := refreshCookie(resp)
			Expect(cookie.Value).NotTo(BeEmpty())
			Expect(cookie.HttpOnly).To(BeTrue())
			Expect(cookie.MaxAge).To(Equal(1209600))

			body := decodeBody(resp)
			Expect(body["memberEmail"]).To(Equal(email))
			Expect(body["memberName"]).To(Equal("Alice"))
			Expect(body["memberId"]).NotTo(BeEmpty())
		})

		It("rejects a duplicate email", func() {
			email := uniqueEmail()
			signUp(email, "correct horse battery", "Alice")

			resp := postJSON("/auth/signup", map[string]any{
				"email":    email,
				"password": "another password",
				"name":     "Mallory",
			})
			Expect(resp.StatusCode).To(Equal(http.StatusConflict))
			Expect(decodeBody(resp)["code"]).To(Equal("AUTH_DUPLICATE_EMAIL"))
		})

		It("rejects a wrong password", func() {
			email := uniqueEmail()
			signUp(email, "correct horse battery", "Alice")

			resp := logIn(email, "wrong password entirely")
			Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
			Expect(decodeBody(resp)["code"]).To(Equal("AUTH_LOGIN_FAILED"))
		})

		It("rejects an unknown member with the same error as a wrong password", func() {
			resp := logIn("nobody@example.com", "whatever password")
			Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
			Expect(decodeBody(resp)["code"]).To(Equal("AUTH_LOGIN_FAILED"))
		})
	})

	Describe("token refresh", func() {
		It("rotates the refresh token and invalidates the old one", func() {
			email := uniqueEmail()
			signUp(email, "correct horse battery", "Alice")
			loginResp := logIn(email, "correct horse battery")
			Expect(loginResp.StatusCode).To(Equal(http.StatusOK))
			oldCookie := refreshCookie(loginResp)

			// Token claims carry second-granularity timestamps; wait so the
			// rotated token differs from the one we hold.
			time.Sleep(1100 * time.Millisecond)

			resp := postJSON("/auth/token/refresh", nil, oldCookie)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			body := decodeBody(resp)
			Expect(body["accessToken"]).NotTo(BeEmpty())
			Expect(body["expiresIn"]).To(BeNumerically("==", testAccessTTL.Milliseconds()/1000))

			newCookie := refreshCookie(resp)
			Expect(newCookie.Value).NotTo(BeEmpty())
			Expect(newCookie.Value).NotTo(Equal(oldCookie.Value))

			// The replaced token no longer matches the stored one.
			replay := postJSON("/auth/token/refresh", nil, oldCookie)
			Expect(replay.StatusCode).To(Equal(http.StatusUnauthorized))
			Expect(decodeBody(replay)["code"]).To(Equal("AUTH_TOKEN_NOT_MATCH"))
		})

		It("rejects a refresh without a cookie", func() {
			resp := postJSON("/auth/token/refresh", nil)
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})

		It("rejects a garbage refresh token", func() {
			resp := postJSON("/auth/token/refresh", nil, &http.Cookie{
				Name:  "refreshToken",
				Value: "not.a.jwt",
			})
			Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
			Expect(decodeBody(resp)["code"]).To(Equal("AUTH_INVALID_TOKEN"))
		})
	})

	Describe("logout", func() {
		It("clears the session so the refresh token stops working", func() {
			email := uniqueEmail()
			signUp(email, "correct horse battery", "Alice")
			loginResp := logIn(email, "correct horse battery")
			cookie := refreshCookie(loginResp)

			resp := postJSON("/auth/logout", nil, cookie)
			Expect(resp.StatusCode).To(Equal(http.StatusNoContent))

			cleared := refreshCookie(resp)
			Expect(cleared.Value).To(BeEmpty())
			Expect(cleared.MaxAge).To(BeNumerically("<", 0))

			replay := postJSON("/auth/token/refresh", nil, cookie)
			Expect(replay.StatusCode).To(Equal(http.StatusUnauthorized))
		})

		It("rejects a logout without a cookie", func() {
			resp := postJSON("/auth/logout", nil)
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("password reset", func() {
		It("resets a password end to end", func() {
			email := uniqueEmail()
			signUp(email, "original password", "Alice")

			By("requesting a reset code")
			resp := postJSON("/auth/password/reset-request", map[string]any{
				"email": email,
				"name":  "Alice",
			})
			Expect(resp.StatusCode).To(Equal(http.StatusNoContent))

			code, ok := env.notifier.codeFor(email)
			Expect(ok).To(BeTrue(), "reset code should have been delivered")
			Expect(code).To(HaveLen(6))

			By("verifying the code")
			resp = postJSON("/auth/password/verify-code", map[string]any{
				"email": email,
				"code":  code,
			})
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			resetToken, _ := decodeBody(resp)["resetToken"].(string)
			Expect(resetToken).NotTo(BeEmpty())

			By("changing the password with the grant")
			payload, err := json.Marshal(map[string]any{"newPassword": "replacement password"})
			Expect(err).NotTo(HaveOccurred())
			req, err := http.NewRequest(http.MethodPost, env.baseURL+"/auth/password/change", bytes.NewReader(payload))
			Expect(err).NotTo(HaveOccurred())
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("X-Reset-Token", resetToken)
			changeResp, err := http.DefaultClient.Do(req)
			Expect(err).NotTo(HaveOccurred())
			defer changeResp.Body.Close() //nolint:errcheck
			Expect(changeResp.StatusCode).To(Equal(http.StatusNoContent))

			By("logging in with the new password")
			Expect(logIn(email, "replacement password").StatusCode).To(Equal(http.StatusOK))
			Expect(logIn(email, "original password").StatusCode).To(Equal(http.StatusUnauthorized))
		})

		It("answers reset requests for unknown members without a notification", func() {
			email := uniqueEmail()

			resp := postJSON("/auth/password/reset-request", map[string]any{
				"email": email,
				"name":  "Nobody",
			})
			Expect(resp.StatusCode).To(Equal(http.StatusNoContent))

			_, ok := env.notifier.codeFor(email)
			Expect(ok).To(BeFalse())
		})

		It("stays silent when the name does not match", func() {
			email := uniqueEmail()
			signUp(email, "original password", "Alice")

			resp := postJSON("/auth/password/reset-request", map[string]any{
				"email": email,
				"name":  "Not Alice",
			})
			Expect(resp.StatusCode).To(Equal(http.StatusNoContent))

			_, ok := env.notifier.codeFor(email)
			Expect(ok).To(BeFalse())
		})

		It("consumes the verification code on use", func() {
			email := uniqueEmail()
			signUp(email, "original password", "Alice")

			resp := postJSON("/auth/password/reset-request", map[string]any{
				"email": email,
				"name":  "Alice",
			})
			Expect(resp.StatusCode).To(Equal(http.StatusNoContent))
			code, ok := env.notifier.codeFor(email)
			Expect(ok).To(BeTrue())

			first := postJSON("/auth/password/verify-code", map[string]any{
				"email": email,
				"code":  code,
			})
			Expect(first.StatusCode).To(Equal(http.StatusOK))

			second := postJSON("/auth/password/verify-code", map[string]any{
				"email": email,
				"code":  code,
			})
			Expect(second.StatusCode).To(Equal(http.StatusBadRequest))
			Expect(decodeBody(second)["code"]).To(Equal("AUTH_INVALID_VERIFICATION_CODE"))
		})

		It("expires an unused verification code", func() {
			email := uniqueEmail()
			signUp(email, "original password", "Alice")

			resp := postJSON("/auth/password/reset-request", map[string]any{
				"email": email,
				"name":  "Alice",
			})
			Expect(resp.StatusCode).To(Equal(http.StatusNoContent))
			code, ok := env.notifier.codeFor(email)
			Expect(ok).To(BeTrue())

			env.redisSrv.FastForward(5*time.Minute + time.Second)

			resp = postJSON("/auth/password/verify-code", map[string]any{
				"email": email,
				"code":  code,
			})
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			Expect(decodeBody(resp)["code"]).To(Equal("AUTH_INVALID_VERIFICATION_CODE"))
		})

		It("expires an unused reset grant", func() {
			email := uniqueEmail()
			signUp(email, "original password", "Alice")

			resp := postJSON("/auth/password/reset-request", map[string]any{
				"email": email,
				"name":  "Alice",
			})
			Expect(resp.StatusCode).To(Equal(http.StatusNoContent))
			code, ok := env.notifier.codeFor(email)
			Expect(ok).To(BeTrue())

			resp = postJSON("/auth/password/verify-code", map[string]any{
				"email": email,
				"code":  code,
			})
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			resetToken, _ := decodeBody(resp)["resetToken"].(string)
			Expect(resetToken).NotTo(BeEmpty())

			env.redisSrv.FastForward(10*time.Minute + time.Second)

			payload := strings.NewReader(`{"newPassword": "replacement password"}`)
			req, err := http.NewRequest(http.MethodPost, env.baseURL+"/auth/password/change", payload)
			Expect(err).NotTo(HaveOccurred())
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("X-Reset-Token", resetToken)
			changeResp, err := http.DefaultClient.Do(req)
			Expect(err).NotTo(HaveOccurred())
			defer changeResp.Body.Close() //nolint:errcheck
			Expect(changeResp.StatusCode).To(Equal(http.StatusBadRequest))
			Expect(decodeBody(changeResp)["code"]).To(Equal("AUTH_INVALID_RESET_TOKEN"))
		})

		It("rejects a forged reset token", func() {
			payload := strings.NewReader(`{"newPassword": "replacement password"}`)
			req, err := http.NewRequest(http.MethodPost, env.baseURL+"/auth/password/change", payload)
			Expect(err).NotTo(HaveOccurred())
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("X-Reset-Token", "00000000-0000-0000-0000-000000000000")
			resp, err := http.DefaultClient.Do(req)
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close() //nolint:errcheck
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			Expect(decodeBody(resp)["code"]).To(Equal("AUTH_INVALID_RESET_TOKEN"))
		})
	})
})
