package occurrence

import (
	"testing"
	"time"
)

var meetingTime = time.Date(2024, 3, 6, 19, 30, 0, 0, time.UTC)

func editCtx(now time.Time) EditContext {
	return EditContext{OccurredAt: meetingTime, Now: now}
}

func TestOccurrence_ClassifyEdit(t *testing.T) {
	t.Run("rejects edits before the meeting", func(t *testing.T) {
		o := Occurrence{}
		_, err := o.ClassifyEdit(GroupAttendance, editCtx(meetingTime.Add(-time.Hour)))
		if err != ErrBeforeOccurrence {
			t.Errorf("error = %v, want ErrBeforeOccurrence", err)
		}
	})

	t.Run("admin edits before the meeting", func(t *testing.T) {
		o := Occurrence{}
		ctx := editCtx(meetingTime.Add(-time.Hour))
		ctx.Admin = true
		class, err := o.ClassifyEdit(GroupAttendance, ctx)
		if err != nil || class != EditImmediate {
			t.Errorf("got (%v, %v), want (EditImmediate, nil)", class, err)
		}
	})

	t.Run("immediate within the window", func(t *testing.T) {
		o := Occurrence{}
		class, err := o.ClassifyEdit(GroupAttendance, editCtx(meetingTime.Add(24*time.Hour)))
		if err != nil || class != EditImmediate {
			t.Errorf("got (%v, %v), want (EditImmediate, nil)", class, err)
		}
		if o.LateAttendanceEditUsed {
			t.Error("an in-window edit consumed the late allowance")
		}
	})

	t.Run("window boundary is inclusive", func(t *testing.T) {
		o := Occurrence{}
		class, err := o.ClassifyEdit(GroupAttendance, editCtx(meetingTime.Add(DefaultEditWindow)))
		if err != nil || class != EditImmediate {
			t.Errorf("got (%v, %v), want (EditImmediate, nil)", class, err)
		}
		if o.LateAttendanceEditUsed {
			t.Error("the boundary edit consumed the late allowance")
		}
	})

	t.Run("first late edit is immediate, second defers", func(t *testing.T) {
		o := Occurrence{}
		late := editCtx(meetingTime.Add(72 * time.Hour))

		class, err := o.ClassifyEdit(GroupAttendance, late)
		if err != nil || class != EditImmediate {
			t.Fatalf("first late edit got (%v, %v), want (EditImmediate, nil)", class, err)
		}
		if !o.LateAttendanceEditUsed {
			t.Fatal("first late edit did not consume the allowance")
		}

		class, err = o.ClassifyEdit(GroupAttendance, late)
		if err != nil || class != EditRequiresApproval {
			t.Errorf("second late edit got (%v, %v), want (EditRequiresApproval, nil)", class, err)
		}
	})

	t.Run("allowances are per field group", func(t *testing.T) {
		o := Occurrence{}
		late := editCtx(meetingTime.Add(72 * time.Hour))

		o.ClassifyEdit(GroupAttendance, late)
		class, err := o.ClassifyEdit(GroupContribution, late)
		if err != nil || class != EditImmediate {
			t.Errorf("contribution edit got (%v, %v), want (EditImmediate, nil)", class, err)
		}
		class, _ = o.ClassifyEdit(GroupDate, late)
		if class != EditImmediate {
			t.Errorf("date edit got %v, want EditImmediate", class)
		}
	})

	t.Run("direct leader holds an extra date allowance", func(t *testing.T) {
		o := Occurrence{}
		late := editCtx(meetingTime.Add(72 * time.Hour))
		late.DirectLeader = true

		for i, want := range []EditClass{EditImmediate, EditImmediate, EditRequiresApproval} {
			class, err := o.ClassifyEdit(GroupDate, late)
			if err != nil || class != want {
				t.Errorf("date edit %d got (%v, %v), want (%v, nil)", i+1, class, err, want)
			}
		}
	})

	t.Run("non-leader gets no extra date allowance", func(t *testing.T) {
		o := Occurrence{}
		late := editCtx(meetingTime.Add(72 * time.Hour))

		o.ClassifyEdit(GroupDate, late)
		class, _ := o.ClassifyEdit(GroupDate, late)
		if class != EditRequiresApproval {
			t.Errorf("second date edit got %v, want EditRequiresApproval", class)
		}
	})

	t.Run("admin never consumes allowances", func(t *testing.T) {
		o := Occurrence{}
		late := editCtx(meetingTime.Add(72 * time.Hour))
		late.Admin = true

		o.ClassifyEdit(GroupAttendance, late)
		if o.LateAttendanceEditUsed {
			t.Error("admin edit consumed the late allowance")
		}
	})

	t.Run("custom window overrides the default", func(t *testing.T) {
		o := Occurrence{}
		ctx := editCtx(meetingTime.Add(2 * time.Hour))
		ctx.Window = time.Hour

		class, err := o.ClassifyEdit(GroupAttendance, ctx)
		if err != nil || class != EditImmediate {
			t.Fatalf("got (%v, %v), want the late allowance", class, err)
		}
		if !o.LateAttendanceEditUsed {
			t.Error("the shortened window should have made this a late edit")
		}
	})
}

func TestOccurrence_DeferAndTakePendingEdit(t *testing.T) {
	now := meetingTime.Add(72 * time.Hour)

	t.Run("defer parks and take drains", func(t *testing.T) {
		o := Occurrence{}
		o.DeferEdit(GroupDate, `{"date":"2024-03-07"}`, "acct-1", now)

		if o.EditApprovalStatus != EditPending || o.PendingEdit == nil {
			t.Fatalf("DeferEdit left status=%q pending=%v", o.EditApprovalStatus, o.PendingEdit)
		}

		edit, err := o.TakePendingEdit()
		if err != nil {
			t.Fatalf("TakePendingEdit() error = %v", err)
		}
		if edit.Group != GroupDate || edit.Payload != `{"date":"2024-03-07"}` || edit.RequestedBy != "acct-1" {
			t.Errorf("unexpected edit %+v", edit)
		}
		if o.EditApprovalStatus != EditApproved || o.PendingEdit != nil {
			t.Errorf("take left status=%q pending=%v", o.EditApprovalStatus, o.PendingEdit)
		}
	})

	t.Run("a new deferral replaces the previous one", func(t *testing.T) {
		o := Occurrence{}
		o.DeferEdit(GroupDate, `{"date":"2024-03-07"}`, "acct-1", now)
		o.DeferEdit(GroupContribution, `{"value":50}`, "acct-2", now.Add(time.Minute))

		edit, err := o.TakePendingEdit()
		if err != nil {
			t.Fatalf("TakePendingEdit() error = %v", err)
		}
		if edit.Group != GroupContribution {
			t.Errorf("Group = %q, want the replacement", edit.Group)
		}
	})

	t.Run("take with nothing parked", func(t *testing.T) {
		o := Occurrence{}
		if _, err := o.TakePendingEdit(); err != ErrNoPendingEdit {
			t.Errorf("error = %v, want ErrNoPendingEdit", err)
		}
	})
}
