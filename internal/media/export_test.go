// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Scribe Contributors

package media

func (h *Handler) DeadlineErr(err error) error { return h.deadlineErr(err) }
